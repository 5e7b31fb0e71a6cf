package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ning0612/sftpsweep/internal/daemon"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write([]string{"nightly", "hourly"}); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	info, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), info.PID)
	}
	if len(info.Profiles) != 2 || info.Profiles[0] != "nightly" || info.Profiles[1] != "hourly" {
		t.Errorf("Profiles = %v", info.Profiles)
	}
}

func TestPIDFile_Status(t *testing.T) {
	pidFile := daemon.NewPIDFile(filepath.Join(t.TempDir(), "test.pid"))

	if _, err := pidFile.Status(); !errors.Is(err, daemon.ErrNotRunning) {
		t.Errorf("Status() without file error = %v, want ErrNotRunning", err)
	}

	if err := pidFile.Write(nil); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	defer pidFile.Remove()

	info, err := pidFile.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), info.PID)
	}
	if len(info.Profiles) != 0 {
		t.Errorf("Profiles = %v, want none", info.Profiles)
	}
}

func TestPIDFile_WriteWhileOtherDaemonRuns(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	// the test's parent process is alive for the whole test
	content := fmt.Sprintf("%d\nnightly\n", os.Getppid())
	if err := os.WriteFile(pidPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	pidFile := daemon.NewPIDFile(pidPath)
	if err := pidFile.Write([]string{"nightly"}); err == nil {
		t.Error("Expected error when another daemon owns the PID file")
	}
}

func TestPIDFile_StalePIDCleanup(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	if err := os.WriteFile(pidPath, []byte("999999\nold\n"), 0644); err != nil {
		t.Fatalf("Failed to write stale PID file: %v", err)
	}

	pidFile := daemon.NewPIDFile(pidPath)
	if _, err := pidFile.Status(); !errors.Is(err, daemon.ErrNotRunning) {
		t.Errorf("Status() for stale PID error = %v, want ErrNotRunning", err)
	}

	if err := pidFile.Write([]string{"new"}); err != nil {
		t.Fatalf("Should overwrite stale PID file: %v", err)
	}
	defer pidFile.Remove()

	info, err := pidFile.Read()
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	if info.PID != os.Getpid() || len(info.Profiles) != 1 || info.Profiles[0] != "new" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestPIDFile_InvalidContent(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	if err := os.WriteFile(pidPath, []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	pidFile := daemon.NewPIDFile(pidPath)
	if _, err := pidFile.Read(); err == nil {
		t.Error("Expected error for invalid PID")
	}

	// garbage is replaced on write
	if err := pidFile.Write(nil); err != nil {
		t.Fatalf("Write over invalid PID file failed: %v", err)
	}
	pidFile.Remove()
}

func TestPIDFile_StopStale(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	if err := os.WriteFile(pidPath, []byte("999999\n"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pidFile := daemon.NewPIDFile(pidPath)
	if err := pidFile.Stop(ctx); !errors.Is(err, daemon.ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("stale PID file should be removed by Stop")
	}
}

func TestPathIn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	path, err := daemon.PathIn(dir)
	if err != nil {
		t.Fatalf("PathIn() error = %v", err)
	}
	if path != filepath.Join(dir, daemon.PIDFileName) {
		t.Errorf("PathIn() = %q", path)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory not created: %v", err)
	}

	if _, err := daemon.PathIn(""); err == nil {
		t.Error("Expected error for empty state directory")
	}
}

func TestPIDFile_Remove(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	pidFile := daemon.NewPIDFile(pidPath)

	if err := pidFile.Write(nil); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}
	if err := pidFile.Remove(); err != nil {
		t.Fatalf("Failed to remove PID file: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should not exist after removal")
	}

	// removing a missing file is not an error
	if err := pidFile.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}
