package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/blob/api"
	"github.com/bignyap/tenantstore/blob/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOBackend implements the BlobBackend contract for MinIO.
type MinIOBackend struct {
	client     *minio.Client
	bucketName string
}

// Ensure MinIOBackend implements api.BlobBackend
var _ api.BlobBackend = (*MinIOBackend)(nil)

// NewMinIOBackend creates a new MinIO-backed blob store, creating the
// bucket if it does not exist.
func NewMinIOBackend(cfg config.MinIOConfig) (*MinIOBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOBackend{client: client, bucketName: cfg.BucketName}, nil
}

func (b *MinIOBackend) Upload(ctx context.Context, key string, data []byte, opts api.UploadOptions) (api.Metadata, error) {
	return b.UploadStream(ctx, key, bytes.NewReader(data), int64(len(data)), opts)
}

func (b *MinIOBackend) UploadStream(ctx context.Context, key string, r io.Reader, size int64, opts api.UploadOptions) (api.Metadata, error) {
	info, err := b.client.PutObject(ctx, b.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return api.Metadata{}, fmt.Errorf("failed to upload object: %w", err)
	}

	return api.Metadata{
		Key:         key,
		Size:        info.Size,
		ContentType: opts.ContentType,
		CreatedAt:   time.Now().UTC(),
		Extra:       opts.Metadata,
	}, nil
}

func (b *MinIOBackend) Download(ctx context.Context, key string) ([]byte, error) {
	rc, err := b.DownloadStream(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, translateErr(err, "failed to read object")
	}
	return data, nil
}

func (b *MinIOBackend) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateErr(err, "failed to get object")
	}

	// GetObject is lazy; surface missing keys now instead of at the
	// first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, translateErr(err, "failed to stat object")
	}
	return obj, nil
}

func (b *MinIOBackend) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := b.client.StatObject(ctx, b.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateErr(err, "failed to stat object")
	}

	if err := b.client.RemoveObject(ctx, b.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return false, translateErr(err, "failed to delete object")
	}
	return true, nil
}

func (b *MinIOBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateErr(err, "failed to stat object")
	}
	return true, nil
}

func (b *MinIOBackend) Copy(ctx context.Context, srcKey, dstKey string) (api.Metadata, error) {
	_, err := b.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: b.bucketName, Object: dstKey},
		minio.CopySrcOptions{Bucket: b.bucketName, Object: srcKey},
	)
	if err != nil {
		return api.Metadata{}, translateErr(err, "failed to copy object")
	}
	return b.GetMetadata(ctx, dstKey)
}

func (b *MinIOBackend) List(ctx context.Context, opts api.ListOptions) (api.ListResult, error) {
	max := opts.MaxKeys
	if max <= 0 {
		max = 1000
	}

	result := api.ListResult{}
	for info := range b.client.ListObjects(ctx, b.bucketName, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  true,
		StartAfter: opts.ContinuationToken,
	}) {
		if info.Err != nil {
			return api.ListResult{}, translateErr(info.Err, "failed to list objects")
		}
		if len(result.Items) == max {
			result.Truncated = true
			result.NextToken = result.Items[max-1].Key
			break
		}
		result.Items = append(result.Items, api.Metadata{
			Key:         info.Key,
			Size:        info.Size,
			ContentType: info.ContentType,
			CreatedAt:   info.LastModified,
		})
	}
	return result, nil
}

func (b *MinIOBackend) GetMetadata(ctx context.Context, key string) (api.Metadata, error) {
	info, err := b.client.StatObject(ctx, b.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return api.Metadata{}, translateErr(err, "failed to stat object")
	}
	return api.Metadata{
		Key:         info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		CreatedAt:   info.LastModified,
		Extra:       info.UserMetadata,
	}, nil
}

func (b *MinIOBackend) GeneratePresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	url, err := b.client.PresignedGetObject(ctx, b.bucketName, key, expiresIn, nil)
	if err != nil {
		return "", translateErr(err, "failed to generate presigned URL")
	}
	return url.String(), nil
}

func (b *MinIOBackend) Stats(ctx context.Context) (api.Stats, error) {
	stats := api.Stats{}
	for info := range b.client.ListObjects(ctx, b.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return api.Stats{}, translateErr(info.Err, "failed to list objects")
		}
		stats.ObjectCount++
		stats.TotalSizeBytes += info.Size
	}
	return stats, nil
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func translateErr(err error, msg string) error {
	if isNotFound(err) {
		return apperror.NotFound("object not found", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
