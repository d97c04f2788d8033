package dataset

import (
	"fmt"
	"log"
	"sort"
)

// SafeDistinctCount returns the count of distinct non-null values in the
// named column. When the column does not exist it logs a warning and
// returns 0 — it never fails.
func SafeDistinctCount(d *Dataset, column string) int {
	values, ok := d.Column(column)
	if !ok {
		log.Printf("warning: column %q not found, returning count=0", column)
		return 0
	}
	seen := make(map[string]bool)
	for _, v := range values {
		if v == nil {
			continue
		}
		seen[fmt.Sprint(v)] = true
	}
	return len(seen)
}

// NumericColumn returns the non-null numeric values of a column in record
// order. Values that cannot be read as numbers are skipped.
func NumericColumn(d *Dataset, column string) []float64 {
	values, ok := d.Column(column)
	if !ok {
		return nil
	}
	var nums []float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if f, ok := ToNumber(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// Median returns the median of the values and false when the input is empty.
// Even-length inputs take the mean of the two middle values.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
