// Package daemon manages the PID file of a running sftpsweep daemon.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// PIDFileName is the PID file name inside the state directory
const PIDFileName = "daemon.pid"

// ErrNotRunning is returned when no live daemon owns the PID file
var ErrNotRunning = errors.New("daemon is not running")

// PIDFile manages the daemon process ID file.
// The first line holds the PID, the second the scheduled profiles.
type PIDFile struct {
	path string
}

// Info describes the daemon recorded in a PID file
type Info struct {
	PID      int
	Profiles []string
}

// NewPIDFile creates a new PID file manager
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// PathIn returns the PID file path inside stateDir, creating the directory
func PathIn(stateDir string) (string, error) {
	if stateDir == "" {
		return "", fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create PID directory: %w", err)
	}
	return filepath.Join(stateDir, PIDFileName), nil
}

// Path returns the PID file path
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process and its profiles.
// It fails when another live daemon already owns the file.
func (p *PIDFile) Write(profiles []string) error {
	if info, err := p.Read(); err == nil {
		if isProcessRunning(info.PID) && info.PID != os.Getpid() {
			return fmt.Errorf("daemon is already running (PID %d, file %s)", info.PID, p.path)
		}
	}
	// stale or unreadable
	if err := p.Remove(); err != nil {
		return err
	}

	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), strings.Join(profiles, ","))

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(p.path)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return f.Close()
}

// Read parses the PID file
func (p *PIDFile) Read() (*Info, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: PID file does not exist: %s", ErrNotRunning, p.path)
		}
		return nil, fmt.Errorf("failed to read PID file: %w", err)
	}

	lines := strings.SplitN(strings.TrimSpace(string(content)), "\n", 2)
	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return nil, fmt.Errorf("invalid PID in file: %q", pidStr)
	}

	info := &Info{PID: pid}
	if len(lines) == 2 {
		for _, name := range strings.Split(lines[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				info.Profiles = append(info.Profiles, name)
			}
		}
	}
	return info, nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Status returns the recorded daemon, or ErrNotRunning when the file is
// missing or its process is gone
func (p *PIDFile) Status() (*Info, error) {
	info, err := p.Read()
	if err != nil {
		return nil, err
	}
	if !isProcessRunning(info.PID) {
		return nil, fmt.Errorf("%w: stale PID file for PID %d", ErrNotRunning, info.PID)
	}
	return info, nil
}

// Stop signals the daemon and waits until it exits or ctx is done.
// A stale PID file is removed.
func (p *PIDFile) Stop(ctx context.Context) error {
	info, err := p.Status()
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			p.Remove()
		}
		return err
	}

	if err := killProcess(info.PID); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for isProcessRunning(info.PID) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("daemon PID %d did not exit: %w", info.PID, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
