package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// MoveFile copies src to dst through an in-memory buffer and deletes src
// only after the upload returned without error. It returns the number
// of bytes copied.
//
// A copy failure leaves src untouched and wraps domain.ErrCopyFailed.
// A delete failure after a successful copy leaves the file in both places
// and wraps domain.ErrSourceNotRemoved; dst is not rolled back.
func (e *Engine) MoveFile(ctx context.Context, src, dst string) (int64, error) {
	r, err := e.fs.Read(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %w", domain.ErrCopyFailed, src, err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %w", domain.ErrCopyFailed, src, err)
	}

	if err := e.fs.Write(ctx, dst, bytes.NewReader(data)); err != nil {
		return 0, fmt.Errorf("%w: upload %s: %w", domain.ErrCopyFailed, dst, err)
	}

	// dst is acknowledged, src may go now
	if err := e.fs.Delete(ctx, src); err != nil {
		return int64(len(data)), fmt.Errorf("%w: %s: %w", domain.ErrSourceNotRemoved, src, err)
	}
	return int64(len(data)), nil
}

func (e *Engine) move(ctx context.Context, log logger.Logger, src, dst string, stats *domain.SweepStats) {
	n, err := e.MoveFile(ctx, src, dst)
	switch {
	case err == nil:
		stats.Moved++
		stats.Bytes += n
		log.Info("moved file", "src", src, "dst", dst, "bytes", n)
	case errors.Is(err, domain.ErrSourceNotRemoved):
		stats.Failed++
		log.Error("file archived but source not removed, now duplicated", "src", src, "dst", dst, "error", err)
	default:
		stats.Failed++
		log.Error("failed to move file", "src", src, "dst", dst, "error", err)
	}
}

// MirrorPath returns the archive counterpart of p, a path at or below
// workingRoot: archiveRoot joined with p relative to workingRoot.
func MirrorPath(workingRoot, archiveRoot, p string) (string, error) {
	work := path.Clean(workingRoot)
	p = path.Clean(p)
	if p == work {
		return path.Clean(archiveRoot), nil
	}

	prefix := work + "/"
	if work == "/" {
		prefix = "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return "", fmt.Errorf("%w: %s is not under %s", domain.ErrOutsideRoot, p, work)
	}
	return path.Join(archiveRoot, strings.TrimPrefix(p, prefix)), nil
}
