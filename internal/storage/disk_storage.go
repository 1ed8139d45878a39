package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage keeps images under a root directory on the local filesystem.
type DiskStorage struct {
	root string
}

func NewDiskStorage(root string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога изображений: %w", err)
	}

	return &DiskStorage{root: root}, nil
}

// path resolves key inside root and rejects keys escaping it.
func (d *DiskStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	return filepath.Join(d.root, clean), nil
}

func (d *DiskStorage) Put(ctx context.Context, key string, file io.Reader, size int64, contentType string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("ошибка записи файла: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("ошибка записи файла: %w", err)
	}

	return nil
}

func (d *DiskStorage) Remove(ctx context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}

	return nil
}
