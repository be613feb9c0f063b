package core

import (
	"fmt"
	"math"
)

// Series is one column's values by row index. Nil entries are gaps.
type Series struct {
	Name   string
	Values []*float64
}

// Chart is a grouped bar chart of two numeric columns over every row.
type Chart struct {
	Rows   int
	Series [2]Series
	Min    float64
	Max    float64
}

// BuildChart picks the first two numeric columns, left to right, and returns
// their values by row index. Returns ErrNotEnoughNumeric when fewer than two
// numeric columns exist. No sampling or aggregation is applied.
func BuildChart(t *Table) (*Chart, error) {
	idx := t.NumericColumns()
	if len(idx) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughNumeric, len(idx))
	}

	ch := &Chart{Rows: t.rows, Min: math.Inf(1), Max: math.Inf(-1)}
	for s, ci := range idx[:2] {
		col := t.cols[ci]
		values := make([]*float64, len(col.Cells))
		for r, c := range col.Cells {
			if c.Kind != CellNumber || math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
				continue
			}
			v := c.Num
			values[r] = &v
			ch.Min = math.Min(ch.Min, v)
			ch.Max = math.Max(ch.Max, v)
		}
		ch.Series[s] = Series{Name: col.Name, Values: values}
	}

	// Bars grow from zero, so the axis always includes it.
	if math.IsInf(ch.Min, 1) {
		ch.Min, ch.Max = 0, 0
	}
	ch.Min = math.Min(ch.Min, 0)
	ch.Max = math.Max(ch.Max, 0)
	return ch, nil
}
