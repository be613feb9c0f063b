package core

import (
	"math"
	"strconv"
)

// CellKind distinguishes the three states a cell can be in.
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumber
	CellText
)

// Cell is a single table value.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// Missing returns an empty cell.
func Missing() Cell { return Cell{Kind: CellMissing} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Num: f} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool { return c.Kind == CellMissing }

// String renders the cell the way it is written to CSV.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return formatNumber(c.Num)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Equal compares two cells; missing equals missing.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellNumber:
		return c.Num == o.Num || (math.IsNaN(c.Num) && math.IsNaN(o.Num))
	case CellText:
		return c.Text == o.Text
	default:
		return true
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ColumnKind is the inferred type of a whole column.
type ColumnKind uint8

const (
	ColumnText ColumnKind = iota
	ColumnNumeric
)

func (k ColumnKind) String() string {
	if k == ColumnNumeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// Format is the export target.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

const (
	MimeCSV  = "text/csv"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFormat accepts "csv" or "excel" (also "xlsx"), case-insensitive.
func ParseFormat(s string) (Format, bool) {
	switch lower(s) {
	case "csv":
		return FormatCSV, true
	case "excel", "xlsx":
		return FormatExcel, true
	}
	return "", false
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".csv"
}

// MIMEType returns the content type used for downloads.
func (f Format) MIMEType() string {
	if f == FormatExcel {
		return MimeXLSX
	}
	return MimeCSV
}

// Label is the human-readable name shown in the UI.
func (f Format) Label() string {
	if f == FormatExcel {
		return "Excel"
	}
	return "CSV"
}

// UploadedFile is the immutable input of the pipeline.
type UploadedFile struct {
	Name      string
	Extension string // lower-cased, with leading dot
	Size      int64
	Data      []byte
}

// SizeKB is the file size in kilobytes.
func (u UploadedFile) SizeKB() float64 {
	return float64(u.Size) / 1024
}

// SelectionMode chooses between keeping every column and an explicit list.
type SelectionMode string

const (
	SelectAll      SelectionMode = "all"
	SelectExplicit SelectionMode = "explicit"
)

// Selection is the user's column choice for one file.
type Selection struct {
	Mode    SelectionMode
	Columns []string
}

// AllColumns is the default selection.
func AllColumns() Selection { return Selection{Mode: SelectAll} }

// Columns builds an explicit selection. An empty list is valid.
func Columns(names ...string) Selection {
	return Selection{Mode: SelectExplicit, Columns: append([]string{}, names...)}
}
