package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"etlkit/internal/storage"
)

func newStore(t *testing.T) *storage.RunStore {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewRunStore(db)
}

func TestRunStore_RoundTrip(t *testing.T) {
	store := newStore(t)

	run := &storage.MergeRun{
		JobID:       "employee-etl",
		StartedAt:   time.Now().Add(-time.Second),
		FinishedAt:  time.Now(),
		Status:      "success",
		RowsRead:    5,
		RowsWritten: 5,
		Warnings:    []string{"branch.csv: every Salary value is missing, median undefined, nulls kept"},
	}
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("CreateRun must assign an id")
	}

	runs, err := store.ListRuns("employee-etl", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != "success" || got.RowsWritten != 5 {
		t.Fatalf("run = %+v", got)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %v", got.Warnings)
	}
}

func TestRunStore_ListLimitAndOrder(t *testing.T) {
	store := newStore(t)

	for i := 0; i < 3; i++ {
		run := &storage.MergeRun{
			JobID:      "job",
			StartedAt:  time.Now().Add(time.Duration(i) * time.Minute),
			FinishedAt: time.Now().Add(time.Duration(i)*time.Minute + time.Second),
			Status:     "success",
		}
		if err := store.CreateRun(run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRuns("job", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("runs out of order: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}

	other, err := store.ListRuns("unknown", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("got %d runs for unknown job", len(other))
	}
}
