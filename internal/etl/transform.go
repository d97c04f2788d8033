package etl

import (
	"fmt"

	"etlkit/internal/dataset"
)

// ── Transformer ────────────────────────────────────────────
// Transformers modify records in-flight between source and destination.
// They are composable: each takes a record, returns a (possibly modified)
// record and a boolean indicating whether to keep it.

// Transformer processes a single record.
// Returns (transformed record, keep). If keep is false, the record is dropped.
type Transformer interface {
	Transform(dataset.Record) (dataset.Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(dataset.Record) (dataset.Record, bool)

func (f TransformerFunc) Transform(r dataset.Record) (dataset.Record, bool) { return f(r) }

// ApplyTransformers runs a record through the chain in order.
func ApplyTransformers(r dataset.Record, ts []Transformer) (dataset.Record, bool) {
	for _, t := range ts {
		var keep bool
		r, keep = t.Transform(r)
		if !keep {
			return r, false
		}
	}
	return r, true
}

// ── Built-in Transforms ────────────────────────────────────

// RenameTransform renames fields in a record. Used to canonicalize
// synonymous column names before merging.
type RenameTransform struct {
	Mapping map[string]string // sourceName → canonicalName
}

func (t *RenameTransform) Transform(r dataset.Record) (dataset.Record, bool) {
	for old, canonical := range t.Mapping {
		if v, ok := r.Data[old]; ok {
			r.Data[canonical] = v
			delete(r.Data, old)
		}
	}
	return r, true
}

// NumericCastTransform coerces a field to a number.
// Values that cannot be parsed become null.
type NumericCastTransform struct {
	Field string
}

func (t *NumericCastTransform) Transform(r dataset.Record) (dataset.Record, bool) {
	v, ok := r.Data[t.Field]
	if !ok || v == nil {
		return r, true
	}
	if f, ok := dataset.ToNumber(v); ok {
		r.Data[t.Field] = f
	} else {
		r.Data[t.Field] = nil
	}
	return r, true
}

// SelectTransform keeps only the specified fields.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) Transform(r dataset.Record) (dataset.Record, bool) {
	filtered := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		if v, ok := r.Data[f]; ok {
			filtered[f] = v
		}
	}
	r.Data = filtered
	return r, true
}

// ── Batch Transforms ──────────────────────────────────────
// These need the whole record set, so the engine applies them after the
// streaming phase rather than per-record.

// ImputeMedian fills null values of field with the median of the non-null
// numeric values in the same record set. Returns the median used, the number
// of records imputed, and false when every value is null (median undefined —
// records are left untouched).
func ImputeMedian(records []dataset.Record, field string) (float64, int, bool) {
	var nums []float64
	for _, r := range records {
		v, ok := r.Data[field]
		if !ok || v == nil {
			continue
		}
		if f, ok := dataset.ToNumber(v); ok {
			nums = append(nums, f)
		}
	}
	median, ok := dataset.Median(nums)
	if !ok {
		return 0, 0, false
	}

	imputed := 0
	for _, r := range records {
		if v, ok := r.Data[field]; !ok || v == nil {
			r.Data[field] = median
			imputed++
		}
	}
	return median, imputed, true
}

// ── Declarative configuration ──────────────────────────────

// TransformConfig is a declarative transform definition (stored as JSON).
type TransformConfig struct {
	Type   string         `json:"type"` // "rename" | "numeric_cast" | "select"
	Config map[string]any `json:"config"`
}

// BuildTransformers converts declarative TransformConfig into Transformer
// instances. Unknown types are skipped.
func BuildTransformers(configs []TransformConfig) []Transformer {
	var ts []Transformer

	for _, tc := range configs {
		switch tc.Type {
		case "rename":
			if mapping, ok := tc.Config["mapping"].(map[string]any); ok {
				m := make(map[string]string)
				for k, v := range mapping {
					m[k] = fmt.Sprint(v)
				}
				ts = append(ts, &RenameTransform{Mapping: m})
			}

		case "numeric_cast":
			if field, _ := tc.Config["field"].(string); field != "" {
				ts = append(ts, &NumericCastTransform{Field: field})
			}

		case "select":
			if fields, ok := tc.Config["fields"].([]any); ok {
				var ff []string
				for _, f := range fields {
					ff = append(ff, fmt.Sprint(f))
				}
				ts = append(ts, &SelectTransform{Fields: ff})
			}
		}
	}

	return ts
}
