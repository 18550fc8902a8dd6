package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"recruiter-go/internal/config"
	"recruiter-go/internal/logger"
)

// MinIOFileStore keeps uploads in a MinIO bucket with an optional expiry
// lifecycle rule.
type MinIOFileStore struct {
	client *minio.Client
	bucket string
}

var _ FileStore = (*MinIOFileStore)(nil)

// NewMinIOFileStore connects to MinIO and ensures the CV bucket exists.
func NewMinIOFileStore(cfg *config.MinIOConfig) (*MinIOFileStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config must not be nil")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	bucket := cfg.CVBucket
	if bucket == "" {
		bucket = "cvs"
	}

	s := &MinIOFileStore{client: client, bucket: bucket}
	if err := s.ensureBucketExists(context.Background(), cfg.Location); err != nil {
		return nil, err
	}
	if cfg.CVExpireDays > 0 {
		if err := s.setupLifecycle(context.Background(), cfg.CVExpireDays); err != nil {
			logger.Warn().Err(err).Str("bucket", bucket).Msg("Failed to set bucket lifecycle")
		}
	}
	return s, nil
}

func (s *MinIOFileStore) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
		}
		logger.Info().Str("bucket", s.bucket).Msg("Created CV bucket")
	}
	return nil
}

func (s *MinIOFileStore) setupLifecycle(ctx context.Context, expireDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "expire-cvs",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expireDays),
			},
		},
	}
	return s.client.SetBucketLifecycle(ctx, s.bucket, lc)
}

func (s *MinIOFileStore) Store(ctx context.Context, filename string, content []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("cvs/%s%s", id.String(), ext)

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentTypeForExt(ext)})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

func (s *MinIOFileStore) Retrieve(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return content, nil
}

func (s *MinIOFileStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("removing object %s: %w", key, err)
	}
	return nil
}

func (s *MinIOFileStore) URLFor(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return u.String(), nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
