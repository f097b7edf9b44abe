// Package storage provides temporary and persistent file storage for
// generation assets. It defines the Storage interface (port) for hexagonal
// architecture and implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent asset storage.
// Implementations handle working files during a generation pass and
// optionally support S3 uploads for final video delivery.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload stores data under the given key for delivery and returns the
	// public URL. Returns ErrS3NotConfigured when no S3 backend is set up.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}
