package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"etlkit/internal/etl"
	"etlkit/internal/service"
	"etlkit/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// MergeService unit tests:
//   - runningJobsGuard prevents double-run
//   - RunJob persists run history
//   - Stop is idempotent
// ─────────────────────────────────────────────────────────────

func TestRunningGuard(t *testing.T) {
	g := &service.ExportedRunningGuard{}

	if !g.TryLock("a") {
		t.Fatal("first lock must succeed")
	}
	if g.TryLock("a") {
		t.Fatal("second lock on the same job must fail")
	}
	if !g.TryLock("b") {
		t.Fatal("lock on a different job must succeed")
	}
	g.Unlock("a")
	if !g.TryLock("a") {
		t.Fatal("lock must succeed again after unlock")
	}
	g.Unlock("a")
	g.Unlock("b")

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitAll hung with no running jobs")
	}
}

func TestMergeService_RunJob(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"),
		[]byte("empID,sal,dept\ne1,100,IT\ne2,,IT\ne3,300,HR\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "master.csv")

	db, err := storage.New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs := storage.NewRunStore(db)

	svc := service.NewMergeService(&etl.Engine{Dest: &etl.CSVWriter{}}, runs)
	svc.AddJob(&etl.MergeJob{
		ID:            "job",
		Pattern:       filepath.Join(dir, "*.csv"),
		OutputTarget:  out,
		RenameMapping: etl.DefaultEmployeeRenames,
		NumericColumn: "Salary",
		Mode:          etl.SyncReplace,
	})

	result, err := svc.RunJob(context.Background(), "job")
	if err != nil {
		t.Fatal(err)
	}
	if result.RowsWritten != 3 {
		t.Fatalf("rows written = %d, want 3", result.RowsWritten)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	history, err := runs.ListRuns("job", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Status != "success" {
		t.Fatalf("history = %+v", history)
	}
}

func TestMergeService_UnknownJob(t *testing.T) {
	svc := service.NewMergeService(&etl.Engine{Dest: &etl.CSVWriter{}}, nil)
	if _, err := svc.RunJob(context.Background(), "missing"); err == nil {
		t.Fatal("running an unregistered job must fail")
	}
}

func TestMergeService_StopIdempotent(t *testing.T) {
	svc := service.NewMergeService(&etl.Engine{Dest: &etl.CSVWriter{}}, nil)
	svc.Stop()
	svc.Stop() // second call must also be safe
}
