package storage

import (
	"context"
	"fmt"
	"time"

	"recruiter-go/internal/config"
)

// FileStore abstracts where uploaded resume files live. Two backends exist:
// the local filesystem for single-node deployments and MinIO for shared
// object storage.
type FileStore interface {
	// Store writes content under a backend-generated key derived from the
	// original filename and returns that key.
	Store(ctx context.Context, filename string, content []byte) (string, error)
	// Retrieve reads the file back by key.
	Retrieve(ctx context.Context, key string) ([]byte, error)
	// Delete removes the file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URLFor returns a time-bounded download URL, or an empty string when
	// the backend cannot produce one.
	URLFor(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// NewFileStore builds the configured backend.
func NewFileStore(cfg *config.Config) (FileStore, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		return NewLocalFileStore(cfg.Storage.LocalDir)
	case "minio":
		return NewMinIOFileStore(&cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
