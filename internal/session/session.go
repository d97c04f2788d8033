package session

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"etlkit/internal/dataset"
)

// ── Session ────────────────────────────────────────────────
// A Session is an explicit handle over an embedded analytics engine
// (in-memory SQLite). Datasets are registered as views and queried with
// SQL. Every operation takes the session as a parameter — there is no
// package-level session state.

// Config carries the resilience settings a session is constructed with.
type Config struct {
	AppName string

	// MaxTaskFailures is the number of attempts a statement gets before
	// its error is surfaced. Only transient engine errors are retried.
	MaxTaskFailures int

	// ExcludeFailedWorkers mirrors the engine's blacklisting knob. The
	// embedded engine runs in-process, so this only drives bookkeeping,
	// but it is recorded so configs stay portable.
	ExcludeFailedWorkers bool

	// CheckpointDir is where dataset snapshots are materialized.
	CheckpointDir string
}

// Session wraps the embedded engine connection.
type Session struct {
	cfg Config
	db  *sql.DB

	mu     sync.Mutex
	closed bool
}

// New constructs a session with the given resilience settings.
func New(cfg Config) (*Session, error) {
	if cfg.MaxTaskFailures <= 0 {
		cfg.MaxTaskFailures = 1
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	// A single connection keeps every registered view on the same
	// in-memory database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping engine: %w", err)
	}

	if cfg.CheckpointDir != "" {
		if err := os.MkdirAll(cfg.CheckpointDir, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	return &Session{cfg: cfg, db: db}, nil
}

// Config returns the settings the session was constructed with.
func (s *Session) Config() Config {
	return s.cfg
}

// Close releases the session handle. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Session) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RegisterView creates-or-replaces a table holding the dataset's records
// so ad-hoc SQL can target it by name.
func (s *Session) RegisterView(ctx context.Context, name string, ds *dataset.Dataset) error {
	if s.stopped() {
		return fmt.Errorf("register view %q: %w", name, ErrStopped)
	}

	names := ds.Schema.FieldNames()
	if len(names) == 0 {
		return fmt.Errorf("register view %q: dataset has no columns", name)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quote(name))); err != nil {
		return fmt.Errorf("replace view %q: %w", name, err)
	}

	cols := make([]string, len(ds.Schema.Fields))
	for i, f := range ds.Schema.Fields {
		cols[i] = fmt.Sprintf("%s %s", quote(f.Name), viewColumnType(f.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create view %q: %w", name, err)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"
	insert := fmt.Sprintf("INSERT INTO %s VALUES %s", quote(name), placeholders)
	for _, rec := range ds.Records {
		args := make([]any, len(names))
		for i, col := range names {
			args[i] = rec.Data[col]
		}
		if _, err := s.db.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("populate view %q: %w", name, err)
		}
	}
	return nil
}

// Query executes SQL against the registered views. Transient engine errors
// are retried up to the configured task-failure budget; the final error is
// returned as a *QueryError.
func (s *Session) Query(ctx context.Context, query string) (*dataset.Dataset, error) {
	if s.stopped() {
		return nil, fmt.Errorf("query: %w", ErrStopped)
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxTaskFailures; attempt++ {
		ds, err := s.queryOnce(ctx, query)
		if err == nil {
			return ds, nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}
	return nil, &QueryError{Query: query, Err: lastErr}
}

// SafeQuery executes a query and returns nil — the explicit "no result"
// value — instead of propagating a failure. The failure description is
// logged as a diagnostic.
func (s *Session) SafeQuery(ctx context.Context, query string) *dataset.Dataset {
	ds, err := s.Query(ctx, query)
	if err != nil {
		log.Printf("sql error: %v", err)
		return nil
	}
	return ds
}

func (s *Session) queryOnce(ctx context.Context, query string) (*dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	schema := &dataset.Schema{Fields: make([]dataset.Field, len(cols))}
	for i, c := range cols {
		schema.Fields[i] = dataset.Field{Name: c, Type: "text"}
	}
	ds := dataset.New(schema)

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		data := make(map[string]any, len(cols))
		for i, c := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			data[c] = v
			if _, isNum := v.(float64); isNum && schema.Fields[i].Type == "text" {
				schema.Fields[i].Type = "number"
			}
		}
		ds.Append(dataset.Record{Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// isTransient reports whether an engine error is worth retrying.
func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, "") + `"`
}

func viewColumnType(fieldType string) string {
	switch fieldType {
	case "number":
		return "REAL"
	case "boolean":
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
