package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ning0612/sftpsweep/internal/config"
	"github.com/Ning0612/sftpsweep/internal/daemon"
	"github.com/Ning0612/sftpsweep/internal/logger"
	"github.com/Ning0612/sftpsweep/internal/scheduler"
	"github.com/Ning0612/sftpsweep/internal/state"
)

// DaemonService schedules profiles on their cron specs
type DaemonService struct {
	mu        sync.RWMutex
	config    *config.Config
	log       logger.Logger
	maint     *MaintenanceService
	scheduler scheduler.Scheduler
	pidFile   *daemon.PIDFile
	profiles  []string
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool
	Profiles       []string
	SchedulerStats *scheduler.Status
	LastRun        *state.RunRecord
}

// NewDaemonService creates a new daemon service
func NewDaemonService(cfg *config.Config, log logger.Logger, opts ...Option) (*DaemonService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	maint, err := NewMaintenanceService(cfg, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maintenance service: %w", err)
	}

	return &DaemonService{
		config: cfg,
		log:    log,
		maint:  maint,
	}, nil
}

// Start schedules the given profiles and writes the PID file.
// It returns once the jobs are registered.
func (d *DaemonService) Start(ctx context.Context, profiles []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}
	if len(profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}

	var jobs []scheduler.Job
	var names []string
	seen := make(map[string]bool)
	for _, name := range profiles {
		p, err := d.config.GetProfile(name)
		if err != nil {
			return err
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
		jobs = append(jobs, scheduler.Job{Profile: p.Name, Schedule: p.Schedule})
	}

	sched, err := scheduler.NewCronScheduler(scheduler.Config{Jobs: jobs}, d.maint.Runner(), d.log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	pidPath, err := daemon.PathIn(d.config.StateDir)
	if err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(pidPath)
	if err := pidFile.Write(names); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		pidFile.Remove()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.scheduler = sched
	d.pidFile = pidFile
	d.profiles = names
	d.log.Info("daemon started", "profiles", names, "pid_file", pidPath)
	return nil
}

// Stop stops the scheduler, waiting for running jobs, and removes the
// PID file
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}
	return d.stopLocked()
}

func (d *DaemonService) stopLocked() error {
	var lastErr error
	if err := d.scheduler.Stop(); err != nil {
		lastErr = fmt.Errorf("failed to stop scheduler: %w", err)
	}
	if err := d.pidFile.Remove(); err != nil {
		lastErr = err
	}

	d.scheduler = nil
	d.pidFile = nil
	d.profiles = nil
	d.log.Info("daemon stopped")
	return lastErr
}

// Status returns the current daemon status
func (d *DaemonService) Status(ctx context.Context) *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running:  d.scheduler != nil,
		Profiles: d.profiles,
	}
	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
	}

	history, err := d.maint.History(ctx, "", 1)
	if err == nil && len(history) > 0 {
		status.LastRun = &history[0]
	}
	return status
}

// Close stops the daemon if running and releases all resources
func (d *DaemonService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	if d.scheduler != nil {
		lastErr = d.stopLocked()
	}
	if err := d.maint.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}
