package core

// convert.go turns raw string cells from CSV and Excel into typed columns.
//
// Inference follows the usual dataframe rules: a column is numeric when every
// non-missing cell parses as a number, otherwise every non-missing cell is
// kept verbatim as text. A column whose rows are all missing is numeric.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates a trimmed cell before strconv sees it, so that forms
// like "0x1F" or "1_000" stay text.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naTokens are the cell values read as missing.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissingToken reports whether a raw cell denotes a missing value.
func IsMissingToken(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// ParseNumber parses a raw cell as a float.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		switch strings.ToLower(s) {
		case "inf", "+inf", "infinity", "-inf", "-infinity":
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// buildColumn infers a column's kind from its raw cells.
func buildColumn(name string, raw []string) Column {
	// A header-only column has no evidence either way and stays text.
	numeric := len(raw) > 0
	for _, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		if _, ok := ParseNumber(s); !ok {
			numeric = false
			break
		}
	}

	cells := make([]Cell, len(raw))
	for i, s := range raw {
		switch {
		case IsMissingToken(s):
			cells[i] = Missing()
		case numeric:
			f, _ := ParseNumber(s)
			cells[i] = Number(f)
		default:
			cells[i] = Text(s)
		}
	}

	kind := ColumnText
	if numeric {
		kind = ColumnNumeric
	}
	return Column{Name: name, Kind: kind, Cells: cells}
}

// tableFromRecords builds a table from a header and ragged data rows.
// Short rows are padded with missing cells; long rows are rejected.
func tableFromRecords(header []string, rows [][]string, lineOffset int) (*Table, error) {
	names := normalizeHeader(header)
	width := len(names)

	raw := make([][]string, width)
	for c := range raw {
		raw[c] = make([]string, len(rows))
	}

	for r, row := range rows {
		if len(row) > width {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrMalformed, r+lineOffset, len(row), width)
		}
		for c := 0; c < width; c++ {
			if c < len(row) {
				raw[c][r] = row[c]
			}
		}
	}

	cols := make([]Column, width)
	for c, name := range names {
		cols[c] = buildColumn(name, raw[c])
	}
	t, err := NewTable(cols)
	if err != nil {
		return nil, err
	}
	t.rows = len(rows)
	return t, nil
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeats
// with ".1", ".2", ... so every column name is unique.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", h, n+1)
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
