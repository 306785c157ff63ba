package config

import (
	"os"
	"strings"

	"github.com/bignyap/tenantstore/blob/api"
)

// MinIOConfig holds MinIO connection configuration.
type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
}

// S3Config holds AWS S3 connection configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string // Optional: for S3-compatible services
}

// LoadMinIOConfig loads MinIO configuration from environment variables.
func LoadMinIOConfig() MinIOConfig {
	return MinIOConfig{
		Endpoint:   getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:  getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnvOrDefault("MINIO_BUCKET", "tenantstore"),
		UseSSL:     getEnvOrDefault("MINIO_USE_SSL", "false") == "true",
	}
}

// LoadS3Config loads S3 configuration from environment variables.
func LoadS3Config() S3Config {
	return S3Config{
		Region:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		AccessKeyID:     getEnvOrDefault("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnvOrDefault("AWS_SECRET_ACCESS_KEY", ""),
		BucketName:      getEnvOrDefault("S3_BUCKET", "tenantstore"),
		Endpoint:        getEnvOrDefault("S3_ENDPOINT", ""),
	}
}

// GetBackendType returns the configured backend type from environment.
func GetBackendType() api.BackendType {
	return api.BackendType(strings.ToLower(getEnvOrDefault("BLOB_BACKEND", "memory")))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
