package core

import (
	"fmt"
	"strings"
)

// DefaultPickCount is how many leading columns the picker preselects when the
// user turns off "select all".
const DefaultPickCount = 5

// DefaultPick returns the first min(DefaultPickCount, n) column names.
func DefaultPick(t *Table) []string {
	names := t.ColumnNames()
	if len(names) > DefaultPickCount {
		names = names[:DefaultPickCount]
	}
	return names
}

// Project restricts t to the selected columns, keeping the table's original
// column order regardless of the order names were given in. Selecting all
// returns a copy of t. An empty explicit selection returns a zero-column
// table that keeps t's row count.
func Project(t *Table, sel Selection) (*Table, error) {
	if sel.Mode != SelectExplicit {
		return t.Clone(), nil
	}

	want := make(map[string]bool, len(sel.Columns))
	for _, name := range sel.Columns {
		want[name] = true
	}

	var unknown []string
	for name := range want {
		if _, ok := t.Column(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(sortedCopy(unknown), ", "))
	}

	cols := make([]Column, 0, len(want))
	for _, c := range t.cols {
		if want[c.Name] {
			cells := make([]Cell, len(c.Cells))
			copy(cells, c.Cells)
			cols = append(cols, Column{Name: c.Name, Kind: c.Kind, Cells: cells})
		}
	}
	return &Table{cols: cols, rows: t.rows}, nil
}
