package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MergeRun is a historical record of one merge execution.
type MergeRun struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// RunStore implements persistence for merge run history.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun saves a run record, assigning it a fresh ID.
func (s *RunStore) CreateRun(run *MergeRun) error {
	run.ID = uuid.New().String()
	warnings, _ := json.Marshal(run.Warnings)
	_, err := s.db.conn.Exec(
		`INSERT INTO merge_runs (id, job_id, started_at, finished_at, status, rows_read, rows_written, warnings, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, run.StartedAt, run.FinishedAt, run.Status,
		run.RowsRead, run.RowsWritten, string(warnings), run.Error,
	)
	return err
}

// ListRuns returns the most recent runs for a job, newest first.
func (s *RunStore) ListRuns(jobID string, limit int) ([]MergeRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, rows_read, rows_written, warnings, error
		 FROM merge_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []MergeRun
	for rows.Next() {
		var r MergeRun
		var warnings string
		if err := rows.Scan(
			&r.ID, &r.JobID, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.RowsRead, &r.RowsWritten, &warnings, &r.Error,
		); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(warnings), &r.Warnings)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
