package core

import "fmt"

// Table is an in-memory frame of named columns with aligned rows.
// A Table belongs to one file state and is never shared between files.
type Table struct {
	cols []Column
	rows int
}

// NewTable builds a table from columns. All columns must be the same length.
func NewTable(cols []Column) (*Table, error) {
	t := &Table{cols: cols}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Cells)
			continue
		}
		if len(c.Cells) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Cells), t.rows)
		}
	}
	return t, nil
}

// MustTable is NewTable for literals in tests and fixtures.
func MustTable(cols ...Column) *Table {
	t, err := NewTable(cols)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count. A zero-column table keeps the row count it
// had before projection.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in order. Callers must not modify them.
func (t *Table) Columns() []Column { return t.cols }

// ColumnNames returns the header in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// NumericColumns returns the indexes of numeric columns, left to right.
func (t *Table) NumericColumns() []int {
	var idx []int
	for i, c := range t.cols {
		if c.Kind == ColumnNumeric {
			idx = append(idx, i)
		}
	}
	return idx
}

// Row returns a copy of row i across all columns.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Cells[i]
	}
	return row
}

// Head returns up to n rows as display strings.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		r := make([]string, len(t.cols))
		for j, c := range t.cols {
			r[j] = c.Cells[i].String()
		}
		out[i] = r
	}
	return out
}

// MissingCount returns the number of missing cells in the table.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.cols {
		for _, cell := range c.Cells {
			if cell.IsMissing() {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return &Table{cols: cols, rows: t.rows}
}

// Equal compares header, column kinds and every cell.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Cells {
			if !c.Cells[r].Equal(oc.Cells[r]) {
				return false
			}
		}
	}
	return true
}
