package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/blob/api"
)

// MemoryBackend is the in-memory reference implementation of the blob
// backend contract, used in tests and single-node development setups.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	data []byte
	meta api.Metadata
}

var _ api.BlobBackend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string]object)}
}

func (b *MemoryBackend) Upload(ctx context.Context, key string, data []byte, opts api.UploadOptions) (api.Metadata, error) {
	meta := api.Metadata{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		CreatedAt:   time.Now().UTC(),
		Extra:       opts.Metadata,
	}

	b.mu.Lock()
	b.objects[key] = object{data: append([]byte(nil), data...), meta: meta}
	b.mu.Unlock()

	return meta, nil
}

func (b *MemoryBackend) UploadStream(ctx context.Context, key string, r io.Reader, size int64, opts api.UploadOptions) (api.Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return api.Metadata{}, fmt.Errorf("failed to read stream: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return api.Metadata{}, apperror.Validation("declared stream size does not match content", nil)
	}
	return b.Upload(ctx, key, data, opts)
}

func (b *MemoryBackend) Download(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, apperror.NotFound("object not found", nil)
	}
	return append([]byte(nil), obj.data...), nil
}

func (b *MemoryBackend) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := b.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return false, nil
	}
	delete(b.objects, key)
	return true, nil
}

func (b *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *MemoryBackend) Copy(ctx context.Context, srcKey, dstKey string) (api.Metadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.objects[srcKey]
	if !ok {
		return api.Metadata{}, apperror.NotFound("source object not found", nil)
	}

	meta := src.meta
	meta.Key = dstKey
	meta.CreatedAt = time.Now().UTC()
	b.objects[dstKey] = object{data: append([]byte(nil), src.data...), meta: meta}
	return meta, nil
}

func (b *MemoryBackend) List(ctx context.Context, opts api.ListOptions) (api.ListResult, error) {
	b.mu.RLock()
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		if opts.Prefix == "" || strings.HasPrefix(key, opts.Prefix) {
			keys = append(keys, key)
		}
	}
	b.mu.RUnlock()

	sort.Strings(keys)

	start := 0
	if opts.ContinuationToken != "" {
		start = sort.SearchStrings(keys, opts.ContinuationToken)
		if start < len(keys) && keys[start] == opts.ContinuationToken {
			start++
		}
	}
	keys = keys[start:]

	max := opts.MaxKeys
	if max <= 0 || max > len(keys) {
		max = len(keys)
	}

	result := api.ListResult{Items: make([]api.Metadata, 0, max)}
	b.mu.RLock()
	for _, key := range keys[:max] {
		if obj, ok := b.objects[key]; ok {
			result.Items = append(result.Items, obj.meta)
		}
	}
	b.mu.RUnlock()

	if max < len(keys) {
		result.Truncated = true
		result.NextToken = keys[max-1]
	}
	return result, nil
}

func (b *MemoryBackend) GetMetadata(ctx context.Context, key string) (api.Metadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return api.Metadata{}, apperror.NotFound("object not found", nil)
	}
	return obj.meta, nil
}

func (b *MemoryBackend) GeneratePresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.objects[key]; !ok {
		return "", apperror.NotFound("object not found", nil)
	}
	expiry := time.Now().Add(expiresIn).Unix()
	return fmt.Sprintf("memory://%s?expires=%d", key, expiry), nil
}

func (b *MemoryBackend) Stats(ctx context.Context) (api.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := api.Stats{ObjectCount: int64(len(b.objects))}
	for _, obj := range b.objects {
		stats.TotalSizeBytes += obj.meta.Size
	}
	return stats, nil
}
