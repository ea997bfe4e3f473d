package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"stabledesk/internal/config"

	"github.com/google/uuid"
)

var (
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage keeps uploaded objects such as horse photos.
type Storage interface {
	// Store saves content under a fresh key below prefix and returns the key.
	Store(ctx context.Context, prefix, filename string, content io.Reader, size int64, contentType string) (string, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// URL is the public address of a stored object.
	URL(key string) string
}

// New builds the storage backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.PublicURL)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// objectKey lays objects out as prefix/year/month/uuid_filename.
func objectKey(prefix, filename string, now time.Time) string {
	return path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		uuid.New().String()+"_"+sanitizeFilename(filename),
	)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

func sanitizeFilename(filename string) string {
	filename = filenameReplacer.Replace(strings.TrimSpace(filename))
	if filename == "" {
		return "upload"
	}
	return filename
}
