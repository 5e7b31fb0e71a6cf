package domain

import "time"

// FileType represents the type of a remote entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
)

// String returns a short label used in log lines
func (t FileType) String() string {
	switch t {
	case FileTypeDirectory:
		return "dir"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// FileInfo is one directory listing result.
// It is produced fresh by every List call and never cached.
type FileInfo struct {
	// Name is the entry name without any path component
	Name string

	// Path is the absolute remote path of the entry
	Path string

	// Type indicates if this is a file, directory, or symlink
	Type FileType

	// Size in bytes (0 for directories)
	Size int64

	// ModTime is the protocol-reported last modification time
	ModTime time.Time
}

// IsDir returns true if this is a directory
func (f FileInfo) IsDir() bool {
	return f.Type == FileTypeDirectory
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return f.Type == FileTypeRegular
}

// IsSymlink returns true if this is a symbolic link
func (f FileInfo) IsSymlink() bool {
	return f.Type == FileTypeSymlink
}

// IsDotEntry reports whether the entry is "." or ".."
func (f FileInfo) IsDotEntry() bool {
	return f.Name == "." || f.Name == ".."
}

// OlderThan reports whether the entry was modified strictly before t.
// An entry modified exactly at t is not older.
func (f FileInfo) OlderThan(t time.Time) bool {
	return f.ModTime.Before(t)
}
