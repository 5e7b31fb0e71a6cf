package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Ning0612/sftpsweep/internal/logger"
)

// CronScheduler runs each configured profile on its own cron schedule.
// A tick that arrives while the previous run of the same profile is still
// going is skipped.
type CronScheduler struct {
	config Config
	runner ProfileRunner
	log    logger.Logger
	cron   *cron.Cron

	mu       sync.RWMutex
	running  bool
	stopped  bool
	stopOnce sync.Once
	jobs     []*cronJob

	stats struct {
		lastRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
	}
}

type cronJob struct {
	Job
	id cron.EntryID

	// guarded by CronScheduler.mu
	busy      bool
	lastRun   time.Time
	runs      int
	skipped   int
	lastError string
}

// NewCronScheduler validates every job's schedule and creates the scheduler
func NewCronScheduler(config Config, runner ProfileRunner, log logger.Logger) (*CronScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("profile runner cannot be nil")
	}
	if len(config.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs to schedule")
	}
	if log == nil {
		log = logger.Nop()
	}

	seen := make(map[string]bool, len(config.Jobs))
	for _, j := range config.Jobs {
		if j.Profile == "" {
			return nil, fmt.Errorf("job profile cannot be empty")
		}
		if seen[j.Profile] {
			return nil, fmt.Errorf("profile %s scheduled twice", j.Profile)
		}
		seen[j.Profile] = true
		if _, err := cron.ParseStandard(j.Schedule); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q for profile %s: %w", j.Schedule, j.Profile, err)
		}
	}

	loc := config.Location
	if loc == nil {
		loc = time.Local
	}
	log = log.With("component", "scheduler")

	return &CronScheduler{
		config: config,
		runner: runner,
		log:    log,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
	}, nil
}

// Start registers one cron entry per job and starts the cron loop.
// Cancelling ctx stops the scheduler.
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	for _, j := range s.config.Jobs {
		job := &cronJob{Job: j}
		id, err := s.cron.AddFunc(j.Schedule, func() { s.execute(ctx, job) })
		if err != nil {
			return fmt.Errorf("failed to schedule profile %s: %w", j.Profile, err)
		}
		job.id = id
		s.jobs = append(s.jobs, job)
	}

	s.cron.Start()
	s.running = true

	for _, job := range s.jobs {
		s.log.Info("profile scheduled",
			"profile", job.Profile,
			"schedule", job.Schedule,
			"next_run", s.cron.Entry(job.id).Next,
		)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// execute runs one tick of a job
func (s *CronScheduler) execute(ctx context.Context, job *cronJob) {
	s.mu.Lock()
	if job.busy {
		job.skipped++
		s.mu.Unlock()
		s.log.Warn("previous run still in progress, skipping tick", "profile", job.Profile)
		return
	}
	job.busy = true
	job.lastRun = time.Now()
	job.runs++
	s.stats.lastRunTime = job.lastRun
	s.stats.totalRuns++
	s.mu.Unlock()

	s.log.Info("scheduled run starting", "profile", job.Profile)
	err := s.runner.RunProfile(ctx, job.Profile)

	s.mu.Lock()
	job.busy = false
	if err != nil {
		s.stats.failedRuns++
		s.stats.lastError = err.Error()
		job.lastError = err.Error()
	} else {
		s.stats.successfulRuns++
		s.stats.lastError = ""
		job.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("scheduled run failed", "profile", job.Profile, "error", err)
		return
	}
	s.log.Info("scheduled run finished", "profile", job.Profile)
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *CronScheduler) Stop() error {
	s.mu.RLock()
	if !s.running {
		stopped := s.stopped
		s.mu.RUnlock()
		if stopped {
			return nil
		}
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.RUnlock()

	s.stopOnce.Do(func() {
		// wait outside the lock; running jobs take it to record stats
		<-s.cron.Stop().Done()

		s.mu.Lock()
		s.running = false
		s.stopped = true
		s.mu.Unlock()
		s.log.Info("scheduler stopped")
	})
	return nil
}

// Status returns the current scheduler status
func (s *CronScheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Status{
		Running:        s.running,
		LastRunTime:    s.stats.lastRunTime,
		TotalRuns:      s.stats.totalRuns,
		SuccessfulRuns: s.stats.successfulRuns,
		FailedRuns:     s.stats.failedRuns,
		LastError:      s.stats.lastError,
	}
	for _, job := range s.jobs {
		js := JobStatus{
			Profile:   job.Profile,
			Schedule:  job.Schedule,
			LastRun:   job.lastRun,
			Runs:      job.runs,
			Skipped:   job.skipped,
			LastError: job.lastError,
		}
		if s.running {
			js.NextRun = s.cron.Entry(job.id).Next
		}
		if !js.NextRun.IsZero() && (st.NextRunTime.IsZero() || js.NextRun.Before(st.NextRunTime)) {
			st.NextRunTime = js.NextRun
		}
		st.Jobs = append(st.Jobs, js)
	}
	return st
}

// cronLogger routes cron's own messages (recovered panics) to our logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if err == nil {
		err = errors.New("unknown")
	}
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
