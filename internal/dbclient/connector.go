package dbclient

import (
	"context"
	"fmt"

	"etlkit/internal/domain"
)

// QueryPage is a batch of rows fetched from a query.
type QueryPage struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	IsWrite      bool     `json:"isWrite"`
	AffectedRows int      `json:"affectedRows"`
}

// Connector abstracts interaction with a database used as an ETL
// destination or as the backing store for the embedded-db example.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Execute runs a query. For reads it fetches up to fetchSize rows
	// (fetchSize <= 0 means no limit); for writes it returns the affected
	// row count.
	Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error)

	// WriteRows bulk-inserts rows into the named table or collection.
	WriteRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error)

	// Close releases the connection.
	Close() error
}

// NewConnector creates a Connector for the given database connection.
func NewConnector(conn *domain.DatabaseConnection) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteConnector(conn)
	case domain.DatabaseDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn))
	case domain.DatabaseDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn))
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(conn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
