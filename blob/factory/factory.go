package factory

import (
	"fmt"

	"github.com/bignyap/tenantstore/blob/adapters/memory"
	minioadapter "github.com/bignyap/tenantstore/blob/adapters/minio"
	s3adapter "github.com/bignyap/tenantstore/blob/adapters/s3"
	"github.com/bignyap/tenantstore/blob/api"
	"github.com/bignyap/tenantstore/blob/config"
)

// NewBlobBackend creates a backend based on the BLOB_BACKEND
// environment variable. Supported types: "memory" (default), "minio",
// "s3".
func NewBlobBackend() (api.BlobBackend, error) {
	return NewBlobBackendWithType(config.GetBackendType())
}

// NewBlobBackendWithType creates a backend of a specific type. Useful
// for testing or when the type is decided by the caller.
func NewBlobBackendWithType(backendType api.BackendType) (api.BlobBackend, error) {
	switch backendType {
	case api.BackendMinio:
		return minioadapter.NewMinIOBackend(config.LoadMinIOConfig())

	case api.BackendS3:
		return s3adapter.NewS3Backend(config.LoadS3Config())

	case api.BackendMemory:
		return memory.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unsupported blob backend: %s (supported: memory, minio, s3)", backendType)
	}
}
