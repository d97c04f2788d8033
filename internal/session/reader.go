package session

import (
	"context"
	"fmt"
	"os"

	"etlkit/internal/dataset"
	"etlkit/internal/etl"
	_ "etlkit/internal/etl/sources" // register file sources
)

// ReadCSV loads a CSV file through the source registry, translating
// low-level failures into session error kinds:
//
//   - session already stopped  → ErrStopped
//   - path does not exist      → *PathNotFoundError carrying the path
//   - anything else            → propagated unchanged
//
// The wrapper performs no retries; retry policy belongs to the session's
// configured task-failure budget.
func (s *Session) ReadCSV(ctx context.Context, path string) (*dataset.Dataset, error) {
	if s.stopped() {
		return nil, fmt.Errorf("read %s: %w", path, ErrStopped)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &PathNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return etl.ReadAll(ctx, "csv_file", etl.SourceConfig{"filePath": path})
}
