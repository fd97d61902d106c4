package table

import (
	"errors"
	"math"
)

// ErrNoValues is returned when a statistic is undefined because a column has
// no non-missing values.
var (
	ErrNoValues      = errors.New("no non-missing values")
	ErrBadPercentile = errors.New("percentile is not a number")
)

// Mean returns the arithmetic mean of the non-missing numeric values.
func Mean(c *Column) (float64, error) {
	vals := c.Numbers()
	if len(vals) == 0 {
		return 0, ErrNoValues
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), nil
}

// Median returns the 0.5 percentile of the non-missing numeric values.
func Median(c *Column) (float64, error) {
	return Percentile(c.SortedNumbers(), 0.5)
}

// Mode returns the most frequent non-missing cell. Ties go to the value
// encountered first in row order.
func Mode(c *Column) (Cell, error) {
	counts := make(map[string]int)
	first := make(map[string]Cell)
	var order []string

	for _, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		k := cell.key()
		if _, seen := counts[k]; !seen {
			first[k] = cell
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return Cell{}, ErrNoValues
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best], nil
}

// Percentile computes the p-th percentile (p in [0,1]) of ascending-sorted
// values using linear interpolation between order statistics:
// h = (n-1)p, result = x[floor h] + (h - floor h)(x[floor h + 1] - x[floor h]).
func Percentile(sorted []float64, p float64) (float64, error) {
	n := len(sorted)
	if n == 0 {
		return 0, ErrNoValues
	}
	if math.IsNaN(p) {
		return 0, ErrBadPercentile
	}
	if p <= 0 {
		return sorted[0], nil
	}
	if p >= 1 {
		return sorted[n-1], nil
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1], nil
	}
	frac := h - lo
	return sorted[i] + frac*(sorted[i+1]-sorted[i]), nil
}

// MinMax returns the smallest and largest non-missing numeric values.
func MinMax(c *Column) (float64, float64, error) {
	vals := c.Numbers()
	if len(vals) == 0 {
		return 0, 0, ErrNoValues
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, nil
}

// ColumnProfile summarizes one column for reports.
type ColumnProfile struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

// Profile returns one ColumnProfile per column, in column order.
func Profile(t *Table) []ColumnProfile {
	out := make([]ColumnProfile, 0, t.NumCols())
	for _, col := range t.columns {
		seen := make(map[string]struct{})
		for _, cell := range col.Cells {
			if !cell.IsMissing() {
				seen[cell.key()] = struct{}{}
			}
		}
		out = append(out, ColumnProfile{
			Name:    col.Name,
			Kind:    col.Kind,
			Missing: col.MissingCount(),
			Unique:  len(seen),
		})
	}
	return out
}

// MissingCounts returns the number of missing cells per column name, for
// columns that have any.
func MissingCounts(t *Table) map[string]int {
	out := make(map[string]int)
	for _, col := range t.columns {
		if n := col.MissingCount(); n > 0 {
			out[col.Name] = n
		}
	}
	return out
}
