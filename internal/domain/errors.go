package domain

import "errors"

// Adapter errors - 遠端檔案系統層錯誤
var (
	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("path not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrNetworkError indicates a transport-level failure
	ErrNetworkError = errors.New("network error")
)

// Lifecycle errors - 維護流程錯誤
var (
	// ErrCopyFailed indicates the download or upload half of a move failed.
	// The source is left untouched.
	ErrCopyFailed = errors.New("copy to archive failed")

	// ErrSourceNotRemoved indicates the copy succeeded but the source
	// could not be deleted, leaving the file in both places
	ErrSourceNotRemoved = errors.New("source not removed after copy")

	// ErrOutsideRoot indicates a path does not lie under the expected root
	ErrOutsideRoot = errors.New("path outside root")
)

// Run errors - 執行層錯誤
var (
	// ErrSessionFailed indicates connecting or authenticating failed
	ErrSessionFailed = errors.New("session failed")

	// ErrRunInProgress indicates another run holds the profile lock
	ErrRunInProgress = errors.New("run already in progress")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrProfileNotFound indicates the named profile doesn't exist
	ErrProfileNotFound = errors.New("profile not found")
)
