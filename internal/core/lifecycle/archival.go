package lifecycle

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// RunArchivalSweep moves files from workingRoot into the mirrored
// location under archiveRoot.
//
// Top-level entries named "." or "..", or named Archive in any case, are
// skipped. Symlinks are never followed or removed at any level. Top-level files are moved regardless of age; files in
// subfolders only when modified strictly before moveBefore.
func (e *Engine) RunArchivalSweep(ctx context.Context, workingRoot, archiveRoot string, moveBefore time.Time) (domain.SweepStats, error) {
	var stats domain.SweepStats
	log := e.log.With("sweep", "archival")
	log.Info("archival sweep started",
		"working_root", workingRoot,
		"archive_root", archiveRoot,
		"move_before", moveBefore,
	)

	entries, ok, err := e.list(ctx, log, workingRoot, &stats)
	if err != nil {
		return stats, err
	}
	if ok {
		e.ensureDirectory(ctx, log, archiveRoot, &stats)
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Visited++

			if entry.IsDotEntry() {
				stats.Skipped++
				continue
			}

			src := path.Join(workingRoot, entry.Name)
			dst, err := MirrorPath(workingRoot, archiveRoot, src)
			if err != nil {
				stats.Failed++
				log.Error("entry escapes working root", "path", src, "error", err)
				continue
			}

			switch {
			case entry.IsSymlink():
				stats.Skipped++
				log.Warn("skipping symlink", "path", src)
			case strings.EqualFold(entry.Name, domain.ArchiveFolderName):
				stats.Skipped++
				log.Info("skipping archive folder", "path", src)
			case entry.IsDir():
				e.ensureDirectory(ctx, log, dst, &stats)
				if err := e.moveOldFilesInSubfolder(ctx, log, src, dst, moveBefore, &stats); err != nil {
					return stats, err
				}
			default:
				e.move(ctx, log, src, dst, &stats)
			}
		}
	}

	log.Info("archival sweep completed",
		"moved", stats.Moved,
		"retained", stats.Retained,
		"skipped", stats.Skipped,
		"dirs_created", stats.DirsCreated,
		"failed", stats.Failed,
		"not_found", stats.NotFound,
		"bytes", stats.Bytes,
	)
	return stats, nil
}

// moveOldFilesInSubfolder archives aged files below sourceFolder into
// destFolder, creating mirrored directories on the way
func (e *Engine) moveOldFilesInSubfolder(ctx context.Context, log logger.Logger, sourceFolder, destFolder string, moveBefore time.Time, stats *domain.SweepStats) error {
	return e.walk(ctx, log, sourceFolder, destFolder, 1, stats, visitor{
		dir: func(src, dst string) {
			e.ensureDirectory(ctx, log, dst, stats)
		},
		file: func(entry domain.FileInfo, src, dst string) {
			if !entry.OlderThan(moveBefore) {
				stats.Retained++
				log.Info("file not old enough, leaving in place", "path", src, "modified", entry.ModTime)
				return
			}
			e.move(ctx, log, src, dst, stats)
		},
	})
}

// EnsureDirectory creates p when it does not exist yet.
// It reports false when the directory may still be missing; the
// failure has already been logged.
func (e *Engine) EnsureDirectory(ctx context.Context, p string) bool {
	var stats domain.SweepStats
	return e.ensureDirectory(ctx, e.log, p, &stats)
}

func (e *Engine) ensureDirectory(ctx context.Context, log logger.Logger, p string, stats *domain.SweepStats) bool {
	exists, err := e.fs.Exists(ctx, p)
	if err != nil {
		stats.Failed++
		log.Error("failed to check directory", "path", p, "error", err)
		return false
	}
	if exists {
		return true
	}

	if err := e.fs.Mkdir(ctx, p); err != nil {
		stats.Failed++
		log.Error("failed to create directory", "path", p, "error", err)
		return false
	}
	stats.DirsCreated++
	log.Info("created directory", "path", p)
	return true
}
