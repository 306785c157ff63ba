package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/blob/api"
	"github.com/bignyap/tenantstore/blob/config"
)

// S3Backend implements the BlobBackend contract for AWS S3 and
// S3-compatible services.
type S3Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
}

// Ensure S3Backend implements api.BlobBackend
var _ api.BlobBackend = (*S3Backend)(nil)

// NewS3Backend creates a new AWS S3 backed blob store.
func NewS3Backend(cfg config.S3Config) (*S3Backend, error) {
	ctx := context.Background()

	var awsOpts []func(*awsconfig.LoadOptions) error
	awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Region))

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		// Custom endpoint for S3-compatible services
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    cfg.BucketName,
	}, nil
}

func (b *S3Backend) Upload(ctx context.Context, key string, data []byte, opts api.UploadOptions) (api.Metadata, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return api.Metadata{}, fmt.Errorf("failed to upload object: %w", err)
	}

	return api.Metadata{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		CreatedAt:   time.Now().UTC(),
		Extra:       opts.Metadata,
	}, nil
}

func (b *S3Backend) UploadStream(ctx context.Context, key string, r io.Reader, size int64, opts api.UploadOptions) (api.Metadata, error) {
	// The SDK needs a seekable body for signing, so buffer the stream.
	data, err := io.ReadAll(r)
	if err != nil {
		return api.Metadata{}, fmt.Errorf("failed to read stream: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return api.Metadata{}, apperror.Validation("declared stream size does not match content", nil)
	}
	return b.Upload(ctx, key, data, opts)
}

func (b *S3Backend) Download(ctx context.Context, key string) ([]byte, error) {
	rc, err := b.DownloadStream(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (b *S3Backend) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateErr(err, "failed to get object")
	}
	return result.Body, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) (bool, error) {
	exists, err := b.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, translateErr(err, "failed to delete object")
	}
	return true, nil
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, translateErr(err, "failed to head object")
	}
	return true, nil
}

func (b *S3Backend) Copy(ctx context.Context, srcKey, dstKey string) (api.Metadata, error) {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucketName),
		Key:        aws.String(dstKey),
		CopySource: aws.String(b.bucketName + "/" + srcKey),
	})
	if err != nil {
		return api.Metadata{}, translateErr(err, "failed to copy object")
	}
	return b.GetMetadata(ctx, dstKey)
}

func (b *S3Backend) List(ctx context.Context, opts api.ListOptions) (api.ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxKeys))
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	output, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return api.ListResult{}, translateErr(err, "failed to list objects")
	}

	result := api.ListResult{Items: make([]api.Metadata, 0, len(output.Contents))}
	for _, obj := range output.Contents {
		meta := api.Metadata{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			meta.CreatedAt = *obj.LastModified
		}
		result.Items = append(result.Items, meta)
	}
	if aws.ToBool(output.IsTruncated) {
		result.Truncated = true
		result.NextToken = aws.ToString(output.NextContinuationToken)
	}
	return result, nil
}

func (b *S3Backend) GetMetadata(ctx context.Context, key string) (api.Metadata, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return api.Metadata{}, translateErr(err, "failed to head object")
	}

	meta := api.Metadata{
		Key:         key,
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
		Extra:       head.Metadata,
	}
	if head.LastModified != nil {
		meta.CreatedAt = *head.LastModified
	}
	return meta, nil
}

func (b *S3Backend) GeneratePresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	result, err := b.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", translateErr(err, "failed to generate presigned URL")
	}
	return result.URL, nil
}

func (b *S3Backend) Stats(ctx context.Context) (api.Stats, error) {
	stats := api.Stats{}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return api.Stats{}, translateErr(err, "failed to list objects")
		}
		for _, obj := range page.Contents {
			stats.ObjectCount++
			stats.TotalSizeBytes += aws.ToInt64(obj.Size)
		}
	}
	return stats, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func translateErr(err error, msg string) error {
	if isNotFound(err) {
		return apperror.NotFound("object not found", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
