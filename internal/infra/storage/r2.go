package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// R2Reader reads catalog documents from Cloudflare R2 (or any S3-compatible
// endpoint) through minio-go.
type R2Reader struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewR2Reader constructs the reader. The endpoint may carry a scheme; https
// enables TLS.
func NewR2Reader(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*R2Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("r2 bucket is required")
	}
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "https"),
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Reader{client: client, bucket: bucket, logger: logger.With("component", "storage.r2")}, nil
}

// Get opens an object for reading. Missing objects fail here rather than on
// the first Read.
func (r *R2Reader) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, err
	}
	r.logger.Debug("object fetched", "key", key, "etag", info.ETag, "size", info.Size)
	return obj, nil
}

// sanitizeEndpoint strips scheme and path, which minio.New rejects.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
