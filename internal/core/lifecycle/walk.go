package lifecycle

import (
	"context"
	"path"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// frame is one listed folder on the traversal stack
type frame struct {
	src     string
	dst     string
	entries []domain.FileInfo
	next    int
	depth   int
}

// visitor receives the entries of a walk.
// dst is the mirrored path and stays empty when the walk has no mirror.
type visitor struct {
	// dir runs before a subdirectory is listed
	dir  func(src, dst string)
	file func(entry domain.FileInfo, src, dst string)
}

// walk visits the tree below root depth-first, in listing order, with a
// subdirectory finished before its next sibling. It uses an explicit stack
// so tree depth is bounded by maxDepth rather than the call stack.
func (e *Engine) walk(ctx context.Context, log logger.Logger, root, mirror string, depth int, stats *domain.SweepStats, v visitor) error {
	entries, ok, err := e.list(ctx, log, root, stats)
	if err != nil || !ok {
		return err
	}

	stack := []*frame{{src: root, dst: mirror, entries: entries, depth: depth}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		stats.Visited++
		if entry.IsDotEntry() {
			stats.Skipped++
			continue
		}
		if entry.IsSymlink() {
			stats.Skipped++
			log.Warn("skipping symlink", "path", path.Join(top.src, entry.Name))
			continue
		}

		src := path.Join(top.src, entry.Name)
		var dst string
		if top.dst != "" {
			dst = path.Join(top.dst, entry.Name)
		}

		if !entry.IsDir() {
			v.file(entry, src, dst)
			continue
		}

		if top.depth+1 > e.maxDepth {
			stats.DepthLimited++
			log.Warn("max depth reached, not descending", "path", src, "max_depth", e.maxDepth)
			continue
		}
		if v.dir != nil {
			v.dir(src, dst)
		}

		children, ok, err := e.list(ctx, log, src, stats)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		stack = append(stack, &frame{src: src, dst: dst, entries: children, depth: top.depth + 1})
	}
	return nil
}
