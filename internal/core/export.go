package core

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the worksheet written by Excel exports.
const ExportSheetName = "Sheet1"

// ExportResult is a serialized table ready for download.
type ExportResult struct {
	Data     []byte
	FileName string
	MIMEType string
	Format   Format
}

// Export serializes t without an index column. sourceName is the original
// upload name; its extension is replaced with the target format's.
func Export(t *Table, f Format, sourceName string) (*ExportResult, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data, err = WriteCSV(t)
	case FormatExcel:
		data, err = WriteXLSX(t)
	default:
		return nil, fmt.Errorf("export format %q: %w", f, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Data:     data,
		FileName: ExportFileName(sourceName, f),
		MIMEType: f.MIMEType(),
		Format:   f,
	}, nil
}

// WriteCSV writes the header and every row. Missing cells are empty fields.
// A zero-column table produces an empty document.
func WriteCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if t.NumCols() == 0 {
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(t.ColumnNames()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c, col := range t.cols {
			record[c] = col.Cells[r].String()
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", r+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the table to a single worksheet. Numbers are stored as
// numeric cells, text as strings and missing cells are left blank.
func WriteXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet != ExportSheetName {
		if err := f.SetSheetName(sheet, ExportSheetName); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	if t.NumCols() > 0 {
		header := make([]interface{}, t.NumCols())
		for i, name := range t.ColumnNames() {
			header[i] = name
		}
		if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
			return nil, fmt.Errorf("write xlsx header: %w", err)
		}

		for r := 0; r < t.NumRows(); r++ {
			row := make([]interface{}, t.NumCols())
			for c, col := range t.cols {
				cell := col.Cells[r]
				switch cell.Kind {
				case CellNumber:
					row[c] = cell.Num
				case CellText:
					row[c] = cell.Text
				default:
					row[c] = nil
				}
			}
			axis, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r+1, err)
			}
			if err := f.SetSheetRow(ExportSheetName, axis, &row); err != nil {
				return nil, fmt.Errorf("write xlsx row %d: %w", r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
