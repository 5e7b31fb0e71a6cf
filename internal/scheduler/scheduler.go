package scheduler

import (
	"context"
	"time"
)

// Scheduler defines the interface for maintenance schedulers
type Scheduler interface {
	// Start begins scheduling; it returns once jobs are registered
	Start(ctx context.Context) error

	// Stop stops scheduling and waits for running jobs
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
	Jobs           []JobStatus
}

// JobStatus is the state of one scheduled profile
type JobStatus struct {
	Profile   string
	Schedule  string
	NextRun   time.Time
	LastRun   time.Time
	Runs      int
	Skipped   int
	LastError string
}

// Job schedules one profile
type Job struct {
	Profile string
	// Schedule is a standard 5-field cron spec or a descriptor such as @hourly
	Schedule string
}

// Config contains scheduler configuration
type Config struct {
	Jobs []Job

	// Location for cron specs; nil means local time
	Location *time.Location
}

// ProfileRunner executes one maintenance run for a profile
type ProfileRunner interface {
	RunProfile(ctx context.Context, profile string) error
}

// RunnerFunc adapts a function to ProfileRunner
type RunnerFunc func(ctx context.Context, profile string) error

// RunProfile calls f
func (f RunnerFunc) RunProfile(ctx context.Context, profile string) error {
	return f(ctx, profile)
}
