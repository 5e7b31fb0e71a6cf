// Package lock keeps two maintenance runs of the same profile from
// overlapping on one host.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// DefaultStaleTimeout is the age after which a lock taken on another host
// is considered abandoned
const DefaultStaleTimeout = 6 * time.Hour

// corruptGrace is how long an unreadable lock file is left alone
const corruptGrace = 10 * time.Second

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileName returns the lock file name for a profile
func FileName(profile string) string {
	return ".sftpsweep-" + unsafeName.ReplaceAllString(profile, "_") + ".lock"
}

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Profile   string    `json:"profile"`
	RunID     string    `json:"run_id,omitempty"`
}

// FileLock is a per-profile lock file
type FileLock struct {
	lockPath     string
	profile      string
	staleTimeout time.Duration
	info         *LockInfo
}

// New creates a lock for profile inside lockDir, creating the directory
func New(lockDir, profile string) (*FileLock, error) {
	if profile == "" {
		return nil, errors.New("lock: profile name cannot be empty")
	}
	if lockDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		lockDir = filepath.Join(configDir, "sftpsweep")
	}

	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FileLock{
		lockPath:     filepath.Join(lockDir, FileName(profile)),
		profile:      profile,
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// Path returns the lock file path
func (l *FileLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets the duration after which a lock is considered stale
func (l *FileLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for runID.
// It returns a *LockError when another run of the profile holds it.
// Acquiring a lock this instance already holds is a no-op.
func (l *FileLock) Acquire(runID string) error {
	if l.info != nil {
		if existing, err := l.readLockInfo(); err == nil && l.isHeldByThisInstance(existing) {
			return nil
		}
		l.info = nil
	}

	existing, err := l.readLockInfo()
	switch {
	case err == nil && l.isStale(existing):
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	case err == nil:
		return &LockError{Holder: existing, Reason: "another run of this profile is active"}
	case !os.IsNotExist(err):
		// a writer may be between create and encode; only an old
		// unreadable file is abandoned
		if st, statErr := os.Stat(l.lockPath); statErr == nil && time.Since(st.ModTime()) < corruptGrace {
			return &LockError{Reason: "lock file is being written by another run"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove corrupt lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Profile:   l.profile,
		RunID:     runID,
	}

	// O_EXCL makes creation atomic across processes
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := l.readLockInfo()
			return &LockError{Holder: holder, Reason: "lock taken by another run during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock if this instance holds it
func (l *FileLock) Release() error {
	if l.info == nil {
		return nil
	}

	existing, err := l.readLockInfo()
	if err != nil {
		l.info = nil
		return nil // already gone
	}

	if !l.isHeldByThisInstance(existing) {
		l.info = nil
		return fmt.Errorf("lock for profile %s was taken over by PID %d", l.profile, existing.PID)
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.info = nil
	return nil
}

// IsLocked reports whether a live holder owns the lock
func (l *FileLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// GetHolder returns information about the current lock holder
func (l *FileLock) GetHolder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease removes the lock file regardless of its holder
func (l *FileLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *FileLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &info, nil
}

// isStale: on the same host only a dead process makes a lock stale.
// Another host's process cannot be checked, so age decides.
func (l *FileLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()
	if info.Hostname == hostname {
		return !processExists(info.PID)
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *FileLock) isHeldByThisInstance(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		info.StartTime.Equal(l.info.StartTime) &&
		info.RunID == l.info.RunID
}

// LockError represents an error when lock cannot be acquired
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, profile: %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.Profile,
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}
