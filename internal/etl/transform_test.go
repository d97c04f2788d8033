package etl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"etlkit/internal/dataset"
	"etlkit/internal/etl"
)

func TestRenameTransform_CanonicalizesSynonyms(t *testing.T) {
	rename := &etl.RenameTransform{Mapping: etl.DefaultEmployeeRenames}

	r, keep := rename.Transform(dataset.Record{Data: map[string]any{
		"empID": "e1", "sal": 100.0, "dept": "IT",
	}})
	assert.True(t, keep)
	assert.Equal(t, map[string]any{
		"Employee_ID": "e1", "Salary": 100.0, "Department": "IT",
	}, r.Data)

	r, _ = rename.Transform(dataset.Record{Data: map[string]any{
		"id": "e2", "salary": 200.0, "dept": "HR",
	}})
	assert.Equal(t, map[string]any{
		"Employee_ID": "e2", "Salary": 200.0, "Department": "HR",
	}, r.Data)
}

func TestNumericCastTransform(t *testing.T) {
	cast := &etl.NumericCastTransform{Field: "Salary"}

	r, _ := cast.Transform(dataset.Record{Data: map[string]any{"Salary": "1200.50"}})
	assert.Equal(t, 1200.50, r.Data["Salary"])

	// Non-numeric values become null.
	r, _ = cast.Transform(dataset.Record{Data: map[string]any{"Salary": "n/a"}})
	assert.Nil(t, r.Data["Salary"])

	// Nulls stay null, missing fields stay missing.
	r, _ = cast.Transform(dataset.Record{Data: map[string]any{"Salary": nil}})
	assert.Nil(t, r.Data["Salary"])
	r, _ = cast.Transform(dataset.Record{Data: map[string]any{"Department": "IT"}})
	_, present := r.Data["Salary"]
	assert.False(t, present)
}

func TestImputeMedian(t *testing.T) {
	records := []dataset.Record{
		{Data: map[string]any{"Salary": 100.0}},
		{Data: map[string]any{"Salary": nil}},
		{Data: map[string]any{"Salary": 300.0}},
	}

	median, imputed, ok := etl.ImputeMedian(records, "Salary")
	assert.True(t, ok)
	assert.Equal(t, 200.0, median)
	assert.Equal(t, 1, imputed)
	assert.Equal(t, 200.0, records[1].Data["Salary"])
}

func TestImputeMedian_AllNull(t *testing.T) {
	records := []dataset.Record{
		{Data: map[string]any{"Salary": nil}},
		{Data: map[string]any{"Salary": nil}},
	}

	_, imputed, ok := etl.ImputeMedian(records, "Salary")
	assert.False(t, ok)
	assert.Equal(t, 0, imputed)
	assert.Nil(t, records[0].Data["Salary"])
}

func TestBuildTransformers(t *testing.T) {
	ts := etl.BuildTransformers([]etl.TransformConfig{
		{Type: "rename", Config: map[string]any{"mapping": map[string]any{"sal": "Salary"}}},
		{Type: "numeric_cast", Config: map[string]any{"field": "Salary"}},
		{Type: "bogus", Config: map[string]any{}},
	})
	assert.Len(t, ts, 2)

	r, keep := etl.ApplyTransformers(dataset.Record{Data: map[string]any{"sal": "42"}}, ts)
	assert.True(t, keep)
	assert.Equal(t, 42.0, r.Data["Salary"])
}
