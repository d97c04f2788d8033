package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"etlkit/internal/dataset"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts records from one input (a file, typically).
// Implementations live in etl/sources/ — one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// SourceSpec describes a source type and the config keys it understands.
type SourceSpec struct {
	Type       string   `json:"type"`
	Label      string   `json:"label"`
	ConfigKeys []string `json:"configKeys"`
}

// Source is the interface every input format must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover introspects the input and returns the expected schema.
	Discover(ctx context.Context, cfg SourceConfig) (*dataset.Schema, error)

	// Read streams records from the input into a channel.
	// The channel is closed when all records have been read or ctx is
	// cancelled. Errors are sent on the error channel (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan dataset.Record, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, ordered by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// ReadAll drains a source into a dataset using the discovered schema.
// Synchronous convenience used by the merge engine and the session reader.
func ReadAll(ctx context.Context, typ string, cfg SourceConfig) (*dataset.Dataset, error) {
	source, err := GetSource(typ)
	if err != nil {
		return nil, err
	}
	schema, err := source.Discover(ctx, cfg)
	if err != nil {
		return nil, err
	}
	recCh, errCh := source.Read(ctx, cfg)

	ds := dataset.New(schema)
	for rec := range recCh {
		ds.Append(rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return ds, nil
}
