package core

import (
	"math"
	"strconv"
	"strings"
)

// RemoveDuplicates deletes rows that exactly match an earlier row, keeping the
// first occurrence and the order of kept rows. Missing cells compare equal.
// Returns the number of rows removed. Applying it twice changes nothing.
func RemoveDuplicates(t *Table) int {
	if t.rows == 0 || len(t.cols) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, t.rows)
	keep := make([]int, 0, t.rows)
	var key strings.Builder
	for r := 0; r < t.rows; r++ {
		key.Reset()
		for _, c := range t.cols {
			writeCellKey(&key, c.Cells[r])
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}

	removed := t.rows - len(keep)
	if removed == 0 {
		return 0
	}

	for i := range t.cols {
		cells := t.cols[i].Cells
		out := make([]Cell, len(keep))
		for j, r := range keep {
			out[j] = cells[r]
		}
		t.cols[i].Cells = out
	}
	t.rows = len(keep)
	return removed
}

// writeCellKey appends an unambiguous encoding of a cell: kind tag, then a
// length-prefixed payload.
func writeCellKey(b *strings.Builder, c Cell) {
	switch c.Kind {
	case CellMissing:
		b.WriteByte('m')
	case CellNumber:
		b.WriteByte('n')
		b.WriteString(strconv.FormatUint(math.Float64bits(normalizeZero(c.Num)), 16))
		b.WriteByte(';')
	case CellText:
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(c.Text)))
		b.WriteByte(':')
		b.WriteString(c.Text)
	}
}

// normalizeZero folds -0 into 0 so they dedupe together.
func normalizeZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

// FillMissing replaces missing cells in every numeric column with that
// column's mean over its non-missing cells. The mean is computed once per
// column before any cell is replaced. Columns with no values are left as is.
// Returns the number of cells filled.
func FillMissing(t *Table) int {
	filled := 0
	for i := range t.cols {
		col := &t.cols[i]
		if col.Kind != ColumnNumeric {
			continue
		}
		mean, ok := columnMean(col.Cells)
		if !ok {
			continue
		}
		for r, c := range col.Cells {
			if c.IsMissing() {
				col.Cells[r] = Number(mean)
				filled++
			}
		}
	}
	return filled
}

// columnMean averages non-missing numeric cells.
func columnMean(cells []Cell) (float64, bool) {
	var sum float64
	n := 0
	for _, c := range cells {
		if c.Kind == CellNumber {
			sum += c.Num
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
