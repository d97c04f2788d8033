package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"etlkit/internal/dataset"
	"etlkit/internal/session"
)

// ─────────────────────────────────────────────────────────────
// Session tests: view registration, querying, the no-result
// sentinel, and the stopped-session error kind.
// ─────────────────────────────────────────────────────────────

func newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(session.Config{
		AppName:         "test",
		MaxTaskFailures: 3,
		CheckpointDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func customers() *dataset.Dataset {
	ds := dataset.New(&dataset.Schema{Fields: []dataset.Field{
		{Name: "customer_id", Type: "text"},
		{Name: "age", Type: "number"},
	}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c1", "age": 25.0}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c2", "age": 41.0}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c3", "age": 35.0}})
	return ds
}

func TestSession_RegisterViewAndQuery(t *testing.T) {
	sess := newSession(t)
	ctx := context.Background()

	if err := sess.RegisterView(ctx, "customers", customers()); err != nil {
		t.Fatal(err)
	}

	result, err := sess.Query(ctx, "SELECT customer_id FROM customers WHERE age > 30 ORDER BY customer_id")
	if err != nil {
		t.Fatal(err)
	}
	if result.Len() != 2 {
		t.Fatalf("got %d rows, want 2", result.Len())
	}
	if result.Records[0].Data["customer_id"] != "c2" {
		t.Fatalf("first row = %v", result.Records[0].Data)
	}
}

// A dataset loaded from CSV must compare numerically, not lexically:
// with TEXT affinity "9" > "30" while "100" < "30", which inverts the
// predicate below.
func TestSession_CSVViewNumericPredicate(t *testing.T) {
	sess := newSession(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "customers.csv")
	content := "customer_id,age\nc1,9\nc2,100\nc3,45\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := sess.ReadCSV(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.RegisterView(ctx, "customers", ds); err != nil {
		t.Fatal(err)
	}

	result, err := sess.Query(ctx, "SELECT customer_id FROM customers WHERE age > 30 ORDER BY customer_id")
	if err != nil {
		t.Fatal(err)
	}
	if result.Len() != 2 {
		t.Fatalf("got %d rows, want 2", result.Len())
	}
	got := []any{result.Records[0].Data["customer_id"], result.Records[1].Data["customer_id"]}
	if got[0] != "c2" || got[1] != "c3" {
		t.Fatalf("matched %v, want [c2 c3]", got)
	}
}

func TestSession_RegisterViewReplaces(t *testing.T) {
	sess := newSession(t)
	ctx := context.Background()

	if err := sess.RegisterView(ctx, "customers", customers()); err != nil {
		t.Fatal(err)
	}
	// Registering the same name again replaces the previous contents.
	small := dataset.New(&dataset.Schema{Fields: []dataset.Field{
		{Name: "customer_id", Type: "text"},
	}})
	small.Append(dataset.Record{Data: map[string]any{"customer_id": "only"}})
	if err := sess.RegisterView(ctx, "customers", small); err != nil {
		t.Fatal(err)
	}

	result, err := sess.Query(ctx, "SELECT * FROM customers")
	if err != nil {
		t.Fatal(err)
	}
	if result.Len() != 1 {
		t.Fatalf("got %d rows after replace, want 1", result.Len())
	}
}

func TestSession_QueryFailureKind(t *testing.T) {
	sess := newSession(t)

	_, err := sess.Query(context.Background(), "SELECT * FROM nonexistent_table")
	var qerr *session.QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
	if qerr.Query == "" || qerr.Err == nil {
		t.Fatalf("query error is missing context: %+v", qerr)
	}
}

func TestSession_SafeQueryNeverFails(t *testing.T) {
	sess := newSession(t)
	ctx := context.Background()

	if result := sess.SafeQuery(ctx, "SELECT * FROM nonexistent_table"); result != nil {
		t.Fatalf("bad query must yield the no-result value, got %v", result)
	}
	if result := sess.SafeQuery(ctx, "not even sql"); result != nil {
		t.Fatal("invalid syntax must yield the no-result value")
	}
}

func TestSession_StoppedErrors(t *testing.T) {
	sess := newSession(t)
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	// Close is idempotent.
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}

	_, err := sess.Query(context.Background(), "SELECT 1")
	if !errors.Is(err, session.ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}

	err = sess.RegisterView(context.Background(), "v", customers())
	if !errors.Is(err, session.ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}
