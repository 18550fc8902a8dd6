package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// LocalFileStore keeps uploads on the local filesystem. Keys are flat file
// names inside the configured directory, prefixed with a UUID to avoid
// collisions between identically named uploads.
type LocalFileStore struct {
	dir string
}

var _ FileStore = (*LocalFileStore)(nil)

// NewLocalFileStore creates the upload directory if needed.
func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if dir == "" {
		dir = "uploads/cvs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &LocalFileStore{dir: dir}, nil
}

func (s *LocalFileStore) Store(_ context.Context, filename string, content []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	key := id.String() + "-" + sanitizeFilename(filename)
	if err := os.WriteFile(filepath.Join(s.dir, key), content, 0o644); err != nil {
		return "", fmt.Errorf("writing upload %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalFileStore) Retrieve(_ context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", key, err)
	}
	return content, nil
}

func (s *LocalFileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting upload %s: %w", key, err)
	}
	return nil
}

// URLFor has nothing to sign locally; callers fall back to serving the file
// themselves.
func (s *LocalFileStore) URLFor(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

// sanitizeFilename strips path separators and whitespace from a client
// filename before it becomes part of a storage key.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, base)
}
