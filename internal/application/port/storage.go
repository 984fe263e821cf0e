package port

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrFileNotFound is returned by FileStorage when the object does not exist
var ErrFileNotFound = errors.New("file not found")

// StoredFile describes an object held by FileStorage
type StoredFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileStorage defines file storage operations on slash-separated relative paths
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]StoredFile, error)
}
