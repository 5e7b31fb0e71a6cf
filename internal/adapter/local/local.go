package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ning0612/sftpsweep/internal/domain"
)

// Adapter implements the adapter.Adapter interface on top of an afero.Fs.
// It serves local disks and mounted shares, and in-memory trees in tests.
type Adapter struct {
	fs afero.Fs
}

// New creates an adapter over the given filesystem
func New(fs afero.Fs) *Adapter {
	return &Adapter{fs: fs}
}

// NewOS creates an adapter over the host filesystem
func NewOS() *Adapter {
	return New(afero.NewOsFs())
}

// Fs exposes the underlying filesystem
func (a *Adapter) Fs() afero.Fs {
	return a.fs
}

// resolvePath cleans an absolute slash path
// Relative paths are rejected so every operation is rooted
func (a *Adapter) resolvePath(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "", domain.ErrPermissionDenied
	}
	return path.Clean(p), nil
}

// List returns the immediate entries of a directory
func (a *Adapter) List(ctx context.Context, p string) ([]domain.FileInfo, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	entries, err := afero.ReadDir(a.fs, fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		result = append(result, fileInfoFromOS(path.Join(fullPath, entry.Name()), entry))
	}

	return result, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := a.fs.Open(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	return file, nil
}

// Write creates or overwrites a file
// Unlike afero.MemMapFs the parent is not created implicitly
func (a *Adapter) Write(ctx context.Context, p string, r io.Reader) error {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return err
	}

	parent, err := a.fs.Stat(path.Dir(fullPath))
	if err != nil {
		return a.mapError(err)
	}
	if !parent.IsDir() {
		return domain.ErrNotDirectory
	}

	file, err := a.fs.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return a.mapError(err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil {
		return copyErr
	}
	return a.mapError(closeErr)
}

// Delete removes a file
func (a *Adapter) Delete(ctx context.Context, p string) error {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return a.mapError(err)
	}
	if info.IsDir() {
		return domain.ErrNotFile
	}
	return a.mapError(a.fs.Remove(fullPath))
}

// Mkdir creates a directory and any necessary parents
func (a *Adapter) Mkdir(ctx context.Context, p string) error {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return err
	}
	return a.mapError(a.fs.MkdirAll(fullPath, 0755))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, p string) (bool, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(a.fs, fullPath)
	if err != nil {
		return false, a.mapError(err)
	}
	return ok, nil
}

// Close is a no-op for the local adapter
func (a *Adapter) Close() error {
	return nil
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func fileInfoFromOS(p string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeRegular
	if info.IsDir() {
		fileType = domain.FileTypeDirectory
	} else if info.Mode()&os.ModeSymlink != 0 {
		fileType = domain.FileTypeSymlink
	}

	return domain.FileInfo{
		Name:    info.Name(),
		Path:    p,
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, os.ErrPermission):
		return domain.ErrPermissionDenied
	}
	return err
}
