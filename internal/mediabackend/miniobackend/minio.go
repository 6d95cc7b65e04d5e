// Package miniobackend stores images in an S3-compatible bucket through MinIO.
package miniobackend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
)

// Name is the backend name reported in logs and metrics.
const Name = "minio"

const defaultContentType = "application/octet-stream"

// Config holds the connection settings for the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the scheme and host used in returned URLs.
	PublicURL string
}

// Backend implements mediabackend.Backend on a single bucket.
type Backend struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// New connects to the endpoint and creates the bucket if it does not exist.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info("minio bucket ready",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
	)

	return &Backend{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: objectBaseURL(cfg),
		logger:  logger,
	}, nil
}

func (b *Backend) Name() string { return Name }

// Upload puts the object under a generated key inside input.Folder.
func (b *Backend) Upload(ctx context.Context, input *mediabackend.UploadInput) (*mediabackend.UploadResult, error) {
	key := mediabackend.NewPublicID(input.Folder, input.Filename)

	contentType := input.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if _, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(input.Data), int64(len(input.Data)),
		minio.PutObjectOptions{ContentType: contentType},
	); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	info := mediabackend.Inspect(input.Filename, input.Data)
	return &mediabackend.UploadResult{
		PublicID:  key,
		SecureURL: objectURL(b.baseURL, key),
		Width:     info.Width,
		Height:    info.Height,
		Format:    info.Format,
		Bytes:     len(input.Data),
	}, nil
}

// Delete removes the object. RemoveObject succeeds for missing keys, so the
// object is stat'ed first to report "not found".
func (b *Backend) Delete(ctx context.Context, publicID string) (*mediabackend.DeleteResult, error) {
	if _, err := b.client.StatObject(ctx, b.bucket, publicID, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return &mediabackend.DeleteResult{Result: mediabackend.ResultNotFound}, nil
		}
		return nil, fmt.Errorf("stat object %s: %w", publicID, err)
	}

	if err := b.client.RemoveObject(ctx, b.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return nil, fmt.Errorf("remove object %s: %w", publicID, err)
	}
	return &mediabackend.DeleteResult{Result: mediabackend.ResultOK}, nil
}

// Ping checks that the bucket is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", b.bucket)
	}
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

func objectBaseURL(cfg Config) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return base + "/" + cfg.Bucket
}

func objectURL(baseURL, key string) string {
	return baseURL + "/" + strings.TrimLeft(key, "/")
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
