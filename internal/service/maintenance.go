// Package service drives maintenance runs: one-shot from the command
// line or on a cron schedule in daemon mode.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/sftpsweep/internal/config"
	"github.com/Ning0612/sftpsweep/internal/core/lifecycle"
	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/lock"
	"github.com/Ning0612/sftpsweep/internal/logger"
	"github.com/Ning0612/sftpsweep/internal/scheduler"
	"github.com/Ning0612/sftpsweep/internal/state"
)

// MaintenanceService runs profiles and records their history
type MaintenanceService struct {
	config   *config.Config
	stateMgr *state.Manager
	log      logger.Logger
	open     SessionOpener
	now      func() time.Time
}

// Option configures a MaintenanceService
type Option func(*MaintenanceService)

// WithSessionOpener replaces the transport dialer
func WithSessionOpener(open SessionOpener) Option {
	return func(s *MaintenanceService) {
		s.open = open
	}
}

// WithClock overrides the time source for thresholds and history
func WithClock(now func() time.Time) Option {
	return func(s *MaintenanceService) {
		s.now = now
	}
}

// NewMaintenanceService creates a service and opens the history database
func NewMaintenanceService(cfg *config.Config, log logger.Logger, opts ...Option) (*MaintenanceService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	stateMgr, err := state.NewManager(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state manager: %w", err)
	}

	s := &MaintenanceService{
		config:   cfg,
		stateMgr: stateMgr,
		log:      log,
		open:     OpenSession,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunProfile performs one maintenance run of the named profile.
//
// Per-entry failures do not produce an error; they are counted in the
// report. An error means the run could not start or was cancelled.
func (s *MaintenanceService) RunProfile(ctx context.Context, name string) (*lifecycle.Report, error) {
	profile, err := s.config.GetProfile(name)
	if err != nil {
		s.log.Error("unknown profile", "profile", name)
		return nil, err
	}

	runID := uuid.NewString()
	log := s.log.With("profile", profile.Name, "run_id", runID)

	fl, err := lock.New(s.config.StateDir, profile.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock: %w", err)
	}
	if err := fl.Acquire(runID); err != nil {
		if lock.IsLockError(err) {
			log.Warn("profile is locked by another run", "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrRunInProgress, err)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if err := fl.Release(); err != nil {
			log.Error("failed to release lock", "error", err)
		}
	}()

	record := state.RunRecord{
		RunID:     runID,
		Profile:   profile.Name,
		StartTime: s.now(),
	}

	report, runErr := s.run(ctx, profile, log)

	record.EndTime = s.now()
	fillRecord(&record, report, runErr)

	// history is written even when the run was cancelled
	if err := s.stateMgr.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		log.Error("failed to record run", "error", err)
	}

	return report, runErr
}

// run opens the session, runs the engine and always closes the session
func (s *MaintenanceService) run(ctx context.Context, profile domain.Profile, log logger.Logger) (*lifecycle.Report, error) {
	a, err := s.open(ctx, profile, log)
	if err != nil {
		err = sessionError(err)
		log.Error("failed to open session", "transport", profile.Transport, "host", profile.Host, "error", err)
		return nil, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close session", "error", err)
		}
	}()

	engine := lifecycle.New(a, log,
		lifecycle.WithClock(s.now),
		lifecycle.WithMaxDepth(profile.MaxDepth),
	)
	return engine.Run(ctx, profile.Policy())
}

func fillRecord(record *state.RunRecord, report *lifecycle.Report, runErr error) {
	if report != nil {
		record.Moved = report.Archival.Moved
		record.Deleted = report.Purge.Deleted
		record.Retained = report.Archival.Retained + report.Purge.Retained
		record.Failed = report.Failures()
		record.NotFound = report.Archival.NotFound + report.Purge.NotFound
		record.Bytes = report.Archival.Bytes
	}

	switch {
	case runErr != nil:
		record.Status = state.StatusFailed
		record.Error = runErr.Error()
	case record.Failed > 0:
		record.Status = state.StatusPartial
	default:
		record.Status = state.StatusSuccess
	}
}

// Runner adapts the service to the scheduler.
// A run with per-entry failures counts as a failed job.
func (s *MaintenanceService) Runner() scheduler.ProfileRunner {
	return scheduler.RunnerFunc(func(ctx context.Context, profile string) error {
		report, err := s.RunProfile(ctx, profile)
		if err != nil {
			return err
		}
		if n := report.Failures(); n > 0 {
			return fmt.Errorf("%d entries failed", n)
		}
		return nil
	})
}

// History returns recent runs of a profile, or of all profiles when
// profile is empty
func (s *MaintenanceService) History(ctx context.Context, profile string, limit int) ([]state.RunRecord, error) {
	if profile == "" {
		return s.stateMgr.AllHistory(ctx, limit)
	}
	p, err := s.config.GetProfile(profile)
	if err != nil {
		return nil, err
	}
	return s.stateMgr.History(ctx, p.Name, limit)
}

// Close releases the history database
func (s *MaintenanceService) Close() error {
	return s.stateMgr.Close()
}
