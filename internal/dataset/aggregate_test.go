package dataset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"etlkit/internal/dataset"
)

func TestSafeDistinctCount(t *testing.T) {
	ds := dataset.New(&dataset.Schema{Fields: []dataset.Field{
		{Name: "customer_id", Type: "text"},
	}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c1"}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c2"}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": "c1"}})
	ds.Append(dataset.Record{Data: map[string]any{"customer_id": nil}})

	assert.Equal(t, 2, dataset.SafeDistinctCount(ds, "customer_id"))
}

func TestSafeDistinctCount_MissingColumn(t *testing.T) {
	ds := dataset.New(&dataset.Schema{Fields: []dataset.Field{
		{Name: "name", Type: "text"},
	}})
	ds.Append(dataset.Record{Data: map[string]any{"name": "a"}})

	// Missing column is a warning, never an error.
	assert.Equal(t, 0, dataset.SafeDistinctCount(ds, "customer_id"))
}

func TestMedian(t *testing.T) {
	m, ok := dataset.Median([]float64{3, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, 2.0, m)

	m, ok = dataset.Median([]float64{4, 1, 3, 2})
	assert.True(t, ok)
	assert.Equal(t, 2.5, m)

	_, ok = dataset.Median(nil)
	assert.False(t, ok)
}

func TestNumericColumn(t *testing.T) {
	ds := dataset.New(&dataset.Schema{Fields: []dataset.Field{
		{Name: "Salary", Type: "number"},
	}})
	ds.Append(dataset.Record{Data: map[string]any{"Salary": 100.0}})
	ds.Append(dataset.Record{Data: map[string]any{"Salary": nil}})
	ds.Append(dataset.Record{Data: map[string]any{"Salary": "not a number"}})
	ds.Append(dataset.Record{Data: map[string]any{"Salary": "250"}})

	assert.Equal(t, []float64{100, 250}, dataset.NumericColumn(ds, "Salary"))
	assert.Nil(t, dataset.NumericColumn(ds, "Bonus"))
}
