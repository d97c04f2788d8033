package etl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"etlkit/internal/dataset"
)

// ── Merge Engine ───────────────────────────────────────────
// Orchestrates: glob → read each file → rename/coerce/impute → concat →
// destination.Write. Row order follows file-discovery order, then record
// order within each file.

// DefaultEmployeeRenames maps the recognized synonyms for employee columns
// to their canonical names.
var DefaultEmployeeRenames = map[string]string{
	"empID":  "Employee_ID",
	"id":     "Employee_ID",
	"sal":    "Salary",
	"salary": "Salary",
	"dept":   "Department",
}

// ErrNoInputFiles is returned when the job's pattern matches nothing.
var ErrNoInputFiles = errors.New("no input files match the pattern")

// MergeJob holds the configuration for a single merge run.
type MergeJob struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Pattern       string            `json:"pattern"`       // glob for input CSV files
	OutputTarget  string            `json:"outputTarget"`  // file path, table, or collection
	RenameMapping map[string]string `json:"renameMapping"` // source column → canonical column
	NumericColumn string            `json:"numericColumn"` // coerced to number, nulls imputed per file
	Mode          SyncMode          `json:"syncMode"`
	TriggerType   string            `json:"triggerType"`   // "manual" | "schedule" | "file_watch"
	TriggerConfig string            `json:"triggerConfig"` // cron expression or watch directory
}

// FileResult describes what happened to one input file.
type FileResult struct {
	Path     string  `json:"path"`
	RowsRead int     `json:"rowsRead"`
	Median   float64 `json:"median"`
	MedianOK bool    `json:"medianOk"`
	Imputed  int     `json:"imputed"`
}

// MergeResult is the outcome of running a merge job.
type MergeResult struct {
	JobID       string        `json:"jobId"`
	Status      string        `json:"status"` // "success" | "error"
	Files       []FileResult  `json:"files"`
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Warnings    []string      `json:"warnings,omitempty"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Engine runs merge jobs against a destination.
type Engine struct {
	Dest Destination
}

// RunMerge executes a merge job end-to-end. Any read or parse failure
// aborts the whole run; no partial output is written.
func (e *Engine) RunMerge(ctx context.Context, job *MergeJob) (*MergeResult, error) {
	start := time.Now()
	result := &MergeResult{JobID: job.ID}

	fail := func(err error) (*MergeResult, error) {
		result.Status = "error"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	paths, err := filepath.Glob(job.Pattern)
	if err != nil {
		return fail(fmt.Errorf("bad pattern %q: %w", job.Pattern, err))
	}
	if len(paths) == 0 {
		return fail(fmt.Errorf("%w: %q", ErrNoInputFiles, job.Pattern))
	}

	rename := &RenameTransform{Mapping: job.RenameMapping}
	var all []dataset.Record
	var prior *dataset.Schema

	for _, path := range paths {
		ds, err := ReadAll(ctx, "csv_file", SourceConfig{"filePath": path})
		if err != nil {
			return fail(fmt.Errorf("read %s: %w", path, err))
		}

		transformers := []Transformer{rename}
		if job.NumericColumn != "" {
			transformers = append(transformers, &NumericCastTransform{Field: job.NumericColumn})
		}

		fileRecords := make([]dataset.Record, 0, ds.Len())
		for _, rec := range ds.Records {
			out, keep := ApplyTransformers(rec, transformers)
			if keep {
				fileRecords = append(fileRecords, out)
			}
		}

		fr := FileResult{Path: path, RowsRead: len(fileRecords)}
		if job.NumericColumn != "" {
			median, imputed, ok := ImputeMedian(fileRecords, job.NumericColumn)
			fr.Median = median
			fr.MedianOK = ok
			fr.Imputed = imputed
			if !ok && len(fileRecords) > 0 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: every %s value is missing, median undefined, nulls kept", path, job.NumericColumn))
			}
		}
		result.Files = append(result.Files, fr)
		result.RowsRead += len(fileRecords)

		if prior == nil {
			prior = renameSchema(ds.Schema, job.RenameMapping)
		}
		all = append(all, fileRecords...)
	}

	schema := dataset.DeriveSchema(all, prior)
	if len(all) == 0 && prior != nil {
		// No rows anywhere: keep the first file's header for the output.
		schema = prior
	}
	if job.NumericColumn != "" {
		for i := range schema.Fields {
			if schema.Fields[i].Name == job.NumericColumn {
				schema.Fields[i].Type = "number"
			}
		}
	}

	written, err := e.Dest.Write(ctx, job.OutputTarget, schema, all, job.Mode)
	if err != nil {
		return fail(fmt.Errorf("write %s: %w", job.OutputTarget, err))
	}

	result.Status = "success"
	result.RowsWritten = written
	result.Duration = time.Since(start)
	return result, nil
}

// renameSchema applies the rename mapping to schema field names, collapsing
// duplicates introduced by synonyms mapping to the same canonical name.
func renameSchema(s *dataset.Schema, mapping map[string]string) *dataset.Schema {
	if s == nil {
		return nil
	}
	out := &dataset.Schema{}
	seen := make(map[string]bool)
	for _, f := range s.Fields {
		name := f.Name
		if canonical, ok := mapping[name]; ok {
			name = canonical
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out.Fields = append(out.Fields, dataset.Field{Name: name, Type: f.Type})
	}
	return out
}
