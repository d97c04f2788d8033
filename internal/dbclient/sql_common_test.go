package dbclient_test

import (
	"context"
	"path/filepath"
	"testing"

	"etlkit/internal/dbclient"
	"etlkit/internal/domain"
)

func sqliteConnector(t *testing.T) dbclient.Connector {
	t.Helper()
	conn, err := dbclient.NewConnector(&domain.DatabaseConnection{
		Driver: domain.DatabaseDriverSQLite,
		Host:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSQLConnector_ExecuteAndWriteRows(t *testing.T) {
	conn := sqliteConnector(t)
	ctx := context.Background()

	if err := conn.TestConnection(ctx); err != nil {
		t.Fatal(err)
	}

	page, err := conn.Execute(ctx,
		`CREATE TABLE movie (title TEXT, year INTEGER, score REAL)`, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !page.IsWrite {
		t.Fatal("DDL must be classified as a write")
	}

	written, err := conn.WriteRows(ctx, "movie",
		[]string{"title", "year", "score"},
		[][]any{
			{"first", 1999, 8.1},
			{"second", 2004, 7.3},
		})
	if err != nil {
		t.Fatal(err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	page, err = conn.Execute(ctx, "SELECT title, year FROM movie ORDER BY year", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(page.Rows))
	}
	if page.Columns[0] != "title" || page.Rows[0][0] != "first" {
		t.Fatalf("page = %+v", page)
	}
}

func TestSQLConnector_FetchSizeLimitsReads(t *testing.T) {
	conn := sqliteConnector(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, `CREATE TABLE n (v INTEGER)`, 0); err != nil {
		t.Fatal(err)
	}
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{i}
	}
	if _, err := conn.WriteRows(ctx, "n", []string{"v"}, rows); err != nil {
		t.Fatal(err)
	}

	page, err := conn.Execute(ctx, "SELECT v FROM n", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(page.Rows))
	}
}

func TestSQLConnector_BadQuery(t *testing.T) {
	conn := sqliteConnector(t)
	if _, err := conn.Execute(context.Background(), "SELECT * FROM missing", 0); err == nil {
		t.Fatal("query against a missing table must fail")
	}
}
