package lifecycle

import (
	"context"
	"time"

	"github.com/Ning0612/sftpsweep/internal/domain"
)

// RunPurgeSweep deletes every file below archiveRoot modified strictly
// before deleteBefore. All directories are descended; none are removed.
func (e *Engine) RunPurgeSweep(ctx context.Context, archiveRoot string, deleteBefore time.Time) (domain.SweepStats, error) {
	var stats domain.SweepStats
	log := e.log.With("sweep", "purge")
	log.Info("purge sweep started", "archive_root", archiveRoot, "delete_before", deleteBefore)

	err := e.walk(ctx, log, archiveRoot, "", 0, &stats, visitor{
		file: func(entry domain.FileInfo, src, _ string) {
			if !entry.OlderThan(deleteBefore) {
				stats.Retained++
				log.Info("file not old enough, keeping", "path", src, "modified", entry.ModTime)
				return
			}
			if err := e.fs.Delete(ctx, src); err != nil {
				stats.Failed++
				log.Error("failed to delete file", "path", src, "error", err)
				return
			}
			stats.Deleted++
			stats.Bytes += entry.Size
			log.Info("deleted file", "path", src, "modified", entry.ModTime)
		},
	})
	if err != nil {
		return stats, err
	}

	log.Info("purge sweep completed",
		"deleted", stats.Deleted,
		"retained", stats.Retained,
		"failed", stats.Failed,
		"not_found", stats.NotFound,
		"bytes", stats.Bytes,
	)
	return stats, nil
}
