package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"etlkit/internal/dataset"
	"etlkit/internal/dbclient"
	"etlkit/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes records into a target system.

// SyncMode determines how records are written to the destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop existing data, write fresh
	SyncAppend  SyncMode = "append"  // add rows without deleting existing
)

// Destination writes records to a target system.
type Destination interface {
	Write(ctx context.Context, target string, schema *dataset.Schema, records []dataset.Record, mode SyncMode) (int, error)
}

// ── CSV Destination ────────────────────────────────────────

// CSVWriter writes records to a CSV file at the target path.
// Null cells become empty strings. Replace mode truncates the file;
// append mode adds rows without a header.
type CSVWriter struct{}

func (w *CSVWriter) Write(ctx context.Context, target string, schema *dataset.Schema, records []dataset.Record, mode SyncMode) (int, error) {
	flags := os.O_CREATE | os.O_WRONLY
	writeHeader := true
	if mode == SyncAppend {
		if info, err := os.Stat(target); err == nil && info.Size() > 0 {
			writeHeader = false
		}
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	names := schema.FieldNames()
	if writeHeader {
		if err := cw.Write(names); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	written := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			cw.Flush()
			return written, ctx.Err()
		default:
		}
		row := make([]string, len(names))
		for i, name := range names {
			row[i] = formatCSVValue(rec.Data[name])
		}
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("write row %d: %w", written, err)
		}
		written++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, fmt.Errorf("flush: %w", err)
	}
	return written, nil
}

func formatCSVValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(v)
	}
}

// ── Database Destination ───────────────────────────────────

// DatabaseWriter writes records into a relational table through the
// dbclient connector layer (sqlite, mysql, postgres). Replace mode drops
// and recreates the table from the schema; append mode creates it only
// when missing.
type DatabaseWriter struct {
	Conn *domain.DatabaseConnection
}

func (w *DatabaseWriter) Write(ctx context.Context, target string, schema *dataset.Schema, records []dataset.Record, mode SyncMode) (int, error) {
	conn, err := dbclient.NewConnector(w.Conn)
	if err != nil {
		return 0, fmt.Errorf("connect destination: %w", err)
	}
	defer conn.Close()

	if mode == SyncReplace {
		if _, err := conn.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(w.Conn.Driver, target)), 0); err != nil {
			return 0, fmt.Errorf("drop table: %w", err)
		}
	}
	if _, err := conn.Execute(ctx, createTableDDL(w.Conn.Driver, target, schema), 0); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	names := schema.FieldNames()
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(names))
		for j, name := range names {
			row[j] = rec.Data[name]
		}
		rows[i] = row
	}
	return conn.WriteRows(ctx, target, names, rows)
}

func createTableDDL(driver domain.DatabaseDriver, table string, schema *dataset.Schema) string {
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(driver, f.Name), sqlColumnType(f.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(driver, table), strings.Join(cols, ", "))
}

func sqlColumnType(fieldType string) string {
	switch fieldType {
	case "number":
		return "REAL"
	case "boolean":
		return "BOOLEAN"
	case "datetime":
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func quoteIdent(driver domain.DatabaseDriver, name string) string {
	if driver == domain.DatabaseDriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, "") + `"`
}

// ── MongoDB Destination ────────────────────────────────────

// MongoWriter appends records as documents into a collection.
// Mongo collections are schemaless, so replace mode is not supported.
type MongoWriter struct {
	Conn *domain.DatabaseConnection
}

func (w *MongoWriter) Write(ctx context.Context, target string, schema *dataset.Schema, records []dataset.Record, mode SyncMode) (int, error) {
	if mode == SyncReplace {
		return 0, fmt.Errorf("mongodb destination supports append mode only")
	}
	conn, err := dbclient.NewConnector(w.Conn)
	if err != nil {
		return 0, fmt.Errorf("connect destination: %w", err)
	}
	defer conn.Close()

	names := schema.FieldNames()
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(names))
		for j, name := range names {
			row[j] = rec.Data[name]
		}
		rows[i] = row
	}
	return conn.WriteRows(ctx, target, names, rows)
}
