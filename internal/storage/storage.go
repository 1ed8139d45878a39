package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("недопустимый ключ объекта")

// Storage holds post images addressed by an object key. The key is what
// posts store as their image reference.
type Storage interface {
	Put(ctx context.Context, key string, file io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}
