package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// ── Dataset ────────────────────────────────────────────────
// Common intermediate data format for everything in this module.
// Sources emit Records, transforms rewrite them, destinations and
// the session consume them.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean" | "datetime"
}

// Schema describes the shape of records in a dataset.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether the schema contains a field with the given name.
func (s *Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Record is a single row of data. A nil value means the cell is null.
type Record struct {
	Data map[string]any `json:"data"`
}

// Dataset is an ordered collection of records plus their schema.
// It has no identity beyond its contents and lives only as long as
// the owning command.
type Dataset struct {
	Schema  *Schema  `json:"schema"`
	Records []Record `json:"records"`
}

// New creates an empty dataset with the given schema.
func New(schema *Schema) *Dataset {
	return &Dataset{Schema: schema}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Append adds a record at the end of the dataset.
func (d *Dataset) Append(r Record) {
	d.Records = append(d.Records, r)
}

// HasColumn reports whether the dataset's schema contains the column.
func (d *Dataset) HasColumn(name string) bool {
	return d.Schema != nil && d.Schema.Has(name)
}

// Column returns all values of the named column in record order.
// The second return is false when the column is not in the schema.
func (d *Dataset) Column(name string) ([]any, bool) {
	if !d.HasColumn(name) {
		return nil, false
	}
	values := make([]any, len(d.Records))
	for i, r := range d.Records {
		values[i] = r.Data[name]
	}
	return values, true
}

// Preview returns up to n leading records.
func (d *Dataset) Preview(n int) []Record {
	if n > len(d.Records) {
		n = len(d.Records)
	}
	return d.Records[:n]
}

// ToNumber converts a cell value to a float64 if possible.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// InferType classifies a column by its non-null values. A column is
// "number" or "boolean" only when every non-null value agrees; anything
// mixed or string-valued stays "text".
func InferType(values []any) string {
	inferred := ""
	for _, v := range values {
		var vt string
		switch v.(type) {
		case nil:
			continue
		case float64, float32, int, int64:
			vt = "number"
		case bool:
			vt = "boolean"
		default:
			return "text"
		}
		if inferred == "" {
			inferred = vt
		} else if inferred != vt {
			return "text"
		}
	}
	if inferred == "" {
		return "text"
	}
	return inferred
}

// DeriveSchema builds a schema from the keys actually present in records,
// preserving type hints and field order from a prior schema where available.
// Fields without a prior hint are typed from their values, and fields not
// covered by the prior schema are appended in sorted order so the result is
// deterministic.
func DeriveSchema(records []Record, prior *Schema) *Schema {
	typeMap := make(map[string]string)
	present := make(map[string]bool)
	for _, r := range records {
		for k := range r.Data {
			present[k] = true
		}
	}

	seen := make(map[string]bool)
	var names []string
	if prior != nil {
		for _, f := range prior.Fields {
			typeMap[f.Name] = f.Type
			if present[f.Name] && !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}
	var extra []string
	for k := range present {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		ft := typeMap[name]
		if ft == "" {
			values := make([]any, 0, len(records))
			for _, r := range records {
				if v, ok := r.Data[name]; ok {
					values = append(values, v)
				}
			}
			ft = InferType(values)
		}
		fields = append(fields, Field{Name: name, Type: ft})
	}
	return &Schema{Fields: fields}
}
