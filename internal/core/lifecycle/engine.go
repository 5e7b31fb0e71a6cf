// Package lifecycle implements the archival and purge policy over a
// remote file tree. Failures are isolated per entry: they are logged and
// counted, and never abort a sweep.
package lifecycle

import (
	"context"
	"time"

	"github.com/Ning0612/sftpsweep/internal/adapter"
	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// Engine runs maintenance sweeps over a single adapter session.
// It issues one remote operation at a time.
type Engine struct {
	fs       adapter.Adapter
	log      logger.Logger
	now      func() time.Time
	maxDepth int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source used to compute thresholds
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxDepth bounds how many folder levels below a sweep root are
// descended. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 1 {
			e.maxDepth = depth
		}
	}
}

// New creates an engine over an open adapter session
func New(a adapter.Adapter, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		fs:       a,
		log:      log,
		now:      time.Now,
		maxDepth: domain.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the outcome of one Run
type Report struct {
	Policy       domain.Policy
	MoveBefore   time.Time
	DeleteBefore time.Time
	Archival     domain.SweepStats
	Purge        domain.SweepStats
	Started      time.Time
	Finished     time.Time
}

// Failures returns the number of entries that failed in either sweep
func (r *Report) Failures() int {
	return r.Archival.Failed + r.Purge.Failed
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Run performs the archival sweep followed by the purge sweep.
// The only error returned is a context cancellation; per-entry failures
// are reported through the logger and the returned counts.
func (e *Engine) Run(ctx context.Context, policy domain.Policy) (*Report, error) {
	eng := *e
	if policy.MaxDepth >= 1 {
		eng.maxDepth = policy.MaxDepth
	}

	now := eng.now()
	report := &Report{
		Policy:       policy,
		MoveBefore:   policy.MoveBefore(now),
		DeleteBefore: policy.DeleteBefore(now),
		Started:      now,
	}

	eng.log.Info("maintenance run started",
		"working_root", policy.WorkingRoot,
		"archive_root", policy.ArchiveRoot,
		"move_threshold_days", policy.MoveThresholdDays,
		"delete_threshold_days", policy.DeleteThresholdDays,
	)

	var err error
	report.Archival, err = eng.RunArchivalSweep(ctx, policy.WorkingRoot, policy.ArchiveRoot, report.MoveBefore)
	if err != nil {
		report.Finished = eng.now()
		return report, err
	}

	report.Purge, err = eng.RunPurgeSweep(ctx, policy.ArchiveRoot, report.DeleteBefore)
	report.Finished = eng.now()
	if err != nil {
		return report, err
	}

	eng.log.Info("maintenance run completed",
		"moved", report.Archival.Moved,
		"deleted", report.Purge.Deleted,
		"failed", report.Failures(),
		"duration", report.Duration(),
	)
	return report, nil
}

// list returns a folder's entries, or false when the branch must end.
// A vanished folder is benign and logged at warn level. The error is
// non-nil only when ctx is done.
func (e *Engine) list(ctx context.Context, log logger.Logger, folder string, stats *domain.SweepStats) ([]domain.FileInfo, bool, error) {
	entries, err := e.fs.List(ctx, folder)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	switch domain.ClassifyError(err) {
	case domain.OutcomeOK:
		return entries, true, nil
	case domain.OutcomeNotFound:
		stats.NotFound++
		log.Warn("folder not found, skipping branch", "path", folder)
	default:
		stats.Failed++
		log.Error("failed to list folder", "path", folder, "error", err)
	}
	return nil, false, nil
}
