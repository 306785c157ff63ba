package api

import (
	"context"
	"io"
	"time"
)

// Metadata describes one stored object. Keys are whatever the caller
// of a backend passed in; the tenant-aware wrapper re-keys metadata so
// its callers never observe internal scoped keys.
type Metadata struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// UploadOptions carries optional attributes for uploads and copies.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ListOptions selects a key range for listing.
type ListOptions struct {
	Prefix            string
	MaxKeys           int
	ContinuationToken string
}

// ListResult is one page of a listing.
type ListResult struct {
	Items     []Metadata
	Truncated bool
	NextToken string
}

// Stats reports backend-wide totals.
type Stats struct {
	TotalSizeBytes int64 `json:"total_size_bytes"`
	ObjectCount    int64 `json:"object_count"`
}

// BlobBackend is the object storage contract consumed by the
// tenant-aware wrapper. Implementations: MinIO, AWS S3, in-memory.
// Missing objects surface as apperror.NotFound; connectivity failures
// pass through from the underlying client.
type BlobBackend interface {
	Upload(ctx context.Context, key string, data []byte, opts UploadOptions) (Metadata, error)
	UploadStream(ctx context.Context, key string, r io.Reader, size int64, opts UploadOptions) (Metadata, error)
	Download(ctx context.Context, key string) ([]byte, error)
	DownloadStream(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) (Metadata, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	GetMetadata(ctx context.Context, key string) (Metadata, error)
	GeneratePresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	Stats(ctx context.Context) (Stats, error)
}

// BackendType represents the type of storage backend.
type BackendType string

const (
	BackendMinio  BackendType = "minio"
	BackendS3     BackendType = "s3"
	BackendMemory BackendType = "memory"
)
