package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage writes objects below a directory that the HTTP server also
// serves at publicURL.
type LocalStorage struct {
	basePath  string
	publicURL string
	now       func() time.Time
}

func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

func (ls *LocalStorage) Store(ctx context.Context, prefix, filename string, content io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(prefix, filename, ls.now())

	fullPath, err := ls.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: failed to write file: %w", err)
	}
	return key, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: failed to stat file: %w", err)
	}
	return true, nil
}

func (ls *LocalStorage) URL(key string) string {
	return ls.publicURL + "/" + key
}

// resolve maps a key to a path and rejects keys that escape the base directory.
func (ls *LocalStorage) resolve(key string) (string, error) {
	absBase, err := filepath.Abs(ls.basePath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(ls.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return absPath, nil
}
