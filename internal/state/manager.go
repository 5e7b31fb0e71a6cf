// Package state keeps a per-run history of maintenance runs.
// The lifecycle engine never reads it; it exists for operators.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the history database file inside the state directory
const DBFileName = "history.db"

// RunStatus is the overall result of one run
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	// StatusPartial means the run completed with per-entry failures
	StatusPartial RunStatus = "partial"
	// StatusFailed means the run did not get to sweep, e.g. no session
	StatusFailed RunStatus = "failed"
)

// IsValid checks if the status is a known value
func (s RunStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// Manager handles run history persistence
type Manager struct {
	db *sql.DB
}

// RunRecord is one maintenance run of one profile
type RunRecord struct {
	ID        int64
	RunID     string
	Profile   string
	StartTime time.Time
	EndTime   time.Time
	Status    RunStatus
	Moved     int
	Deleted   int
	Retained  int
	Failed    int
	NotFound  int
	Bytes     int64
	Error     string
}

// Duration returns the wall time of the run
func (r RunRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// NewManager opens or creates the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection avoids "database is locked" between daemon jobs
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		profile TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		moved INTEGER DEFAULT 0,
		deleted INTEGER DEFAULT 0,
		retained INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		not_found INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_profile_time ON runs(profile, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a finished run
func (m *Manager) SaveRun(ctx context.Context, record RunRecord) error {
	if !record.Status.IsValid() {
		return fmt.Errorf("invalid status: %s (must be 'success', 'partial', or 'failed')", record.Status)
	}
	if record.RunID == "" || record.Profile == "" {
		return fmt.Errorf("run id and profile are required")
	}

	query := `
		INSERT INTO runs (run_id, profile, start_time, end_time, status, moved, deleted, retained, failed, not_found, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.ExecContext(ctx, query,
		record.RunID,
		record.Profile,
		record.StartTime.UTC(),
		record.EndTime.UTC(),
		string(record.Status),
		record.Moved,
		record.Deleted,
		record.Retained,
		record.Failed,
		record.NotFound,
		record.Bytes,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, run_id, profile, start_time, end_time, status, moved, deleted, retained, failed, not_found, bytes, error
	FROM runs
`

// History returns the most recent runs of a profile, newest first
func (m *Manager) History(ctx context.Context, profile string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, selectRuns+`WHERE profile = ? ORDER BY start_time DESC, id DESC LIMIT ?`, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return scanRuns(rows)
}

// AllHistory returns the most recent runs across all profiles
func (m *Manager) AllHistory(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, selectRuns+`ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query all history: %w", err)
	}
	return scanRuns(rows)
}

// LastSuccess returns the latest successful run of a profile, or nil
func (m *Manager) LastSuccess(ctx context.Context, profile string) (*RunRecord, error) {
	rows, err := m.db.QueryContext(ctx, selectRuns+`WHERE profile = ? AND status = ? ORDER BY start_time DESC, id DESC LIMIT 1`,
		profile, string(StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}
	records, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var status string
		err := rows.Scan(
			&r.ID,
			&r.RunID,
			&r.Profile,
			&r.StartTime,
			&r.EndTime,
			&status,
			&r.Moved,
			&r.Deleted,
			&r.Retained,
			&r.Failed,
			&r.NotFound,
			&r.Bytes,
			&r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Status = RunStatus(status)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
