package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/sftpsweep/internal/domain"
)

// Adapter defines the remote filesystem capability set the lifecycle
// engine consumes. Paths are absolute and slash-separated.
// Implementations are used by one goroutine at a time and must return
// domain-level errors for consistent error handling.
type Adapter interface {
	// List returns the immediate entries of the given directory
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Read opens a file for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if file doesn't exist
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file
	// The parent directory must already exist
	Write(ctx context.Context, path string, r io.Reader) error

	// Delete removes a file
	// Returns domain.ErrNotFound if path doesn't exist
	Delete(ctx context.Context, path string) error

	// Mkdir creates a directory and any necessary parents
	// No error if directory already exists
	Mkdir(ctx context.Context, path string) error

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Close ends the session and releases any resources
	Close() error
}
