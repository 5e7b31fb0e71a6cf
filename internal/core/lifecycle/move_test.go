package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

func TestMoveFile_DestinationWrittenBeforeSourceDeleted(t *testing.T) {
	f := newFakeFS()
	f.addFile("/work/a.txt", "payload", daysAgo(1))
	f.addDir("/archive")

	deleteSeen := false
	f.beforeDelete = func(p string) {
		if p != "/work/a.txt" {
			return
		}
		deleteSeen = true
		if got := f.content("/archive/a.txt"); got != "payload" {
			t.Errorf("destination content at delete time = %q, want %q", got, "payload")
		}
	}

	e := New(f, logger.Nop())
	n, err := e.MoveFile(context.Background(), "/work/a.txt", "/archive/a.txt")
	if err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	if n != int64(len("payload")) {
		t.Errorf("MoveFile() bytes = %d, want %d", n, len("payload"))
	}
	if !deleteSeen {
		t.Fatal("source was never deleted")
	}
	if f.hasFile("/work/a.txt") {
		t.Error("source still exists after move")
	}

	want := []string{"read /work/a.txt", "write /archive/a.txt", "delete /work/a.txt"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestMoveFile_UploadFailureKeepsSource(t *testing.T) {
	f := newFakeFS()
	f.addFile("/work/a.txt", "payload", daysAgo(1))
	f.addDir("/archive")
	f.failWrite["/archive/a.txt"] = errors.New("quota exceeded")

	e := New(f, logger.Nop())
	_, err := e.MoveFile(context.Background(), "/work/a.txt", "/archive/a.txt")
	if !errors.Is(err, domain.ErrCopyFailed) {
		t.Fatalf("MoveFile() error = %v, want ErrCopyFailed", err)
	}
	if !f.hasFile("/work/a.txt") {
		t.Error("source removed after failed upload")
	}
	if f.hasFile("/archive/a.txt") {
		t.Error("destination should not exist after failed upload")
	}
	if f.count("delete ") != 0 {
		t.Errorf("delete issued after failed upload: %v", f.calls)
	}
}

func TestMoveFile_DownloadFailureWritesNothing(t *testing.T) {
	f := newFakeFS()
	f.addFile("/work/a.txt", "payload", daysAgo(1))
	f.addDir("/archive")
	f.failRead["/work/a.txt"] = errors.New("connection reset")

	e := New(f, logger.Nop())
	_, err := e.MoveFile(context.Background(), "/work/a.txt", "/archive/a.txt")
	if !errors.Is(err, domain.ErrCopyFailed) {
		t.Fatalf("MoveFile() error = %v, want ErrCopyFailed", err)
	}
	if f.count("write ") != 0 || f.count("delete ") != 0 {
		t.Errorf("unexpected calls after failed download: %v", f.calls)
	}
}

func TestMoveFile_DeleteFailureLeavesDuplicate(t *testing.T) {
	f := newFakeFS()
	f.addFile("/work/a.txt", "payload", daysAgo(1))
	f.addDir("/archive")
	f.failDelete["/work/a.txt"] = domain.ErrPermissionDenied

	e := New(f, logger.Nop())
	n, err := e.MoveFile(context.Background(), "/work/a.txt", "/archive/a.txt")
	if !errors.Is(err, domain.ErrSourceNotRemoved) {
		t.Fatalf("MoveFile() error = %v, want ErrSourceNotRemoved", err)
	}
	if errors.Is(err, domain.ErrCopyFailed) {
		t.Error("delete failure must not be reported as a copy failure")
	}
	if n != int64(len("payload")) {
		t.Errorf("bytes = %d, want %d", n, len("payload"))
	}
	if !f.hasFile("/work/a.txt") || !f.hasFile("/archive/a.txt") {
		t.Error("expected the file at both source and destination")
	}
}

func TestMove_LogsDuplicateAsError(t *testing.T) {
	f := newFakeFS()
	f.addFile("/work/a.txt", "payload", daysAgo(1))
	f.addDir("/archive")
	f.failDelete["/work/a.txt"] = domain.ErrPermissionDenied

	buf := &bytes.Buffer{}
	e := New(f, bufferLogger(buf))
	var stats domain.SweepStats
	e.move(context.Background(), e.log, "/work/a.txt", "/archive/a.txt", &stats)

	if stats.Failed != 1 || stats.Moved != 0 {
		t.Errorf("stats = %+v, want one failure", stats)
	}
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "source not removed") {
		t.Errorf("expected error log about duplicate, got: %s", buf.String())
	}
}

func TestEnsureDirectory_Idempotent(t *testing.T) {
	f := newFakeFS()
	e := New(f, logger.Nop())
	ctx := context.Background()

	if !e.EnsureDirectory(ctx, "/archive/sub") {
		t.Fatal("first EnsureDirectory() = false")
	}
	if !e.EnsureDirectory(ctx, "/archive/sub") {
		t.Fatal("second EnsureDirectory() = false")
	}
	if got := f.count("mkdir "); got != 1 {
		t.Errorf("mkdir calls = %d, want 1", got)
	}
}

func TestEnsureDirectory_FailuresAreLogged(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fakeFS)
		message string
	}{
		{
			name:    "create fails",
			prepare: func(f *fakeFS) { f.failMkdir["/archive/sub"] = domain.ErrPermissionDenied },
			message: "failed to create directory",
		},
		{
			name:    "existence check fails",
			prepare: func(f *fakeFS) { f.failExists["/archive/sub"] = domain.ErrNetworkError },
			message: "failed to check directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFS()
			tt.prepare(f)
			buf := &bytes.Buffer{}
			e := New(f, bufferLogger(buf))

			if e.EnsureDirectory(context.Background(), "/archive/sub") {
				t.Error("EnsureDirectory() = true, want false")
			}
			if !strings.Contains(buf.String(), tt.message) {
				t.Errorf("log missing %q: %s", tt.message, buf.String())
			}
		})
	}
}

func TestMirrorPath(t *testing.T) {
	tests := []struct {
		name        string
		workingRoot string
		archiveRoot string
		p           string
		want        string
		wantErr     bool
	}{
		{"nested file", "/data/work", "/data/archive", "/data/work/a/b/c.txt", "/data/archive/a/b/c.txt", false},
		{"top-level file", "/data/work", "/backup", "/data/work/c.txt", "/backup/c.txt", false},
		{"root itself", "/data/work", "/data/archive", "/data/work", "/data/archive", false},
		{"trailing slashes", "/data/work/", "/data/archive/", "/data/work/a/c.txt", "/data/archive/a/c.txt", false},
		{"nested archive", "/data/work", "/data/work/Archive", "/data/work/a/c.txt", "/data/work/Archive/a/c.txt", false},
		{"filesystem root", "/", "/archive", "/a/b/c.txt", "/archive/a/b/c.txt", false},
		{"sibling prefix", "/data/work", "/data/archive", "/data/workshop/c.txt", "", true},
		{"outside", "/data/work", "/data/archive", "/etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MirrorPath(tt.workingRoot, tt.archiveRoot, tt.p)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrOutsideRoot) {
					t.Errorf("MirrorPath() error = %v, want ErrOutsideRoot", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MirrorPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MirrorPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
