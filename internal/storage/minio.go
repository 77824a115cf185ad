package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/heimdex/heimdex-editor/internal/media"
)

const presignExpiry = 6 * time.Hour

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore uploads assets to an S3-compatible bucket and hands out
// presigned URLs for them. Assets that were never uploaded resolve through
// the fallback resolver.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	fallback Resolver
	logger   *slog.Logger
}

func NewMinioStore(ctx context.Context, cfg MinioConfig, fallback Resolver, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logger.Info("created bucket", "bucket", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, fallback: fallback, logger: logger}, nil
}

// ObjectKey returns the key an asset file is stored under.
func ObjectKey(assetID, path string) string {
	return "assets/" + assetID + "/" + filepath.Base(path)
}

// Publish uploads the file at path and returns its object key.
func (s *MinioStore) Publish(ctx context.Context, assetID, path string) (string, error) {
	key := ObjectKey(assetID, path)
	info, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: media.ContentType(path),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Info("asset uploaded", "asset_id", assetID, "key", key, "size", info.Size)
	return key, nil
}

func (s *MinioStore) URL(ctx context.Context, assetID, objectKey string) (string, error) {
	if objectKey == "" {
		if s.fallback == nil {
			return "", fmt.Errorf("asset %s has no object key", assetID)
		}
		return s.fallback.URL(ctx, assetID, objectKey)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectKey, err)
	}
	return u.String(), nil
}
