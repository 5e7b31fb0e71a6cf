package domain

import (
	"errors"
	"io/fs"
)

// Outcome classifies the result of a remote operation
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeNotFound is the benign "path vanished" case
	OutcomeNotFound
	OutcomeFailed
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// ClassifyError maps an operation error onto an Outcome
func ClassifyError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

// SweepStats summarizes one sweep
type SweepStats struct {
	// Visited counts every listed entry that was classified
	Visited int
	Moved   int
	Deleted int
	// Skipped counts dot entries, symlinks and the reserved archive folder
	Skipped int
	// Retained counts files left in place because they are not old enough
	Retained     int
	DirsCreated  int
	Failed       int
	NotFound     int
	DepthLimited int
	Bytes        int64
}

// Add accumulates other into s
func (s *SweepStats) Add(other SweepStats) {
	s.Visited += other.Visited
	s.Moved += other.Moved
	s.Deleted += other.Deleted
	s.Skipped += other.Skipped
	s.Retained += other.Retained
	s.DirsCreated += other.DirsCreated
	s.Failed += other.Failed
	s.NotFound += other.NotFound
	s.DepthLimited += other.DepthLimited
	s.Bytes += other.Bytes
}
