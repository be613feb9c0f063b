package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SupportedExtensions lists the extensions accepted by ParseUpload.
var SupportedExtensions = []string{".csv", ".xlsx"}

// NewUploadedFile captures an upload's name and content.
func NewUploadedFile(name string, data []byte) UploadedFile {
	return UploadedFile{
		Name:      name,
		Extension: strings.ToLower(filepath.Ext(name)),
		Size:      int64(len(data)),
		Data:      data,
	}
}

// Supported reports whether the extension is one ParseUpload can read.
func (u UploadedFile) Supported() bool {
	for _, ext := range SupportedExtensions {
		if u.Extension == ext {
			return true
		}
	}
	return false
}

// ParseUpload reads an uploaded file into a Table based on its extension.
// Unsupported extensions are rejected before any bytes are parsed.
func ParseUpload(f UploadedFile) (*Table, error) {
	switch f.Extension {
	case ".csv":
		return ReadCSV(bytes.NewReader(f.Data))
	case ".xlsx":
		return ReadXLSX(bytes.NewReader(f.Data))
	default:
		return nil, fmt.Errorf("%w: %q (accepted: %s)",
			ErrUnsupportedFormat, f.Name, strings.Join(SupportedExtensions, ", "))
	}
}

// ReadCSV parses comma-separated text with a header row. A UTF-8 BOM is
// dropped and invalid UTF-8 bytes are replaced.
func ReadCSV(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rows = append(rows, rec)
	}

	// Data starts on line 2.
	return tableFromRecords(header, rows, 2)
}

// ReadXLSX parses the first worksheet of a workbook, using its first row as
// the header. Cell values are read raw so numbers keep full precision;
// cells with a date or time number format become ISO text instead of serials.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformed, sheets[0], err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	rows := records[1:]
	if err := formatDateCells(f, sheets[0], rows); err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformed, sheets[0], err)
	}

	// GetRows trims trailing empty cells, so a wide data row can only mean
	// cells beyond the header; widen the header like a blank title would.
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}

	return tableFromRecords(header, rows, 2)
}

// formatDateCells rewrites date and time formatted cells of the data rows
// (sheet row i+2) from Excel serial numbers to text, so such columns infer
// as text and are never charted or mean-filled.
func formatDateCells(f *excelize.File, sheet string, rows [][]string) error {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	isDate := make(map[int]bool) // by style index
	for r, row := range rows {
		for c, raw := range row {
			if raw == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			style, err := f.GetCellStyle(sheet, axis)
			if err != nil {
				return err
			}
			date, seen := isDate[style]
			if !seen {
				date = styleIsDate(f, style)
				isDate[style] = date
			}
			if !date {
				continue
			}
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if text, ok := serialToText(serial, date1904); ok {
				row[c] = text
			}
		}
	}
	return nil
}

func styleIsDate(f *excelize.File, idx int) bool {
	st, err := f.GetStyle(idx)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return isDateFormatCode(*st.CustomNumFmt)
	}
	return isBuiltinDateFormat(st.NumFmt)
}

// isBuiltinDateFormat covers the built-in date and time ids (14-22, 45-47)
// and the East Asian locale date ids (27-36, 50-58).
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format code renders a
// date or time: any y, m, d, h or s outside literals, escapes and colors.
func isDateFormatCode(code string) bool {
	// only the positive section decides
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; ch {
		case '"':
			end := strings.IndexByte(code[i+1:], '"')
			if end < 0 {
				return false
			}
			i += end + 1
		case '\\', '_', '*':
			i++
		case '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			// [h], [mm] and [ss] are elapsed time
			if inner := strings.ToLower(code[i+1 : i+end]); inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += end
		case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
			return true
		}
	}
	return false
}

// serialToText renders a serial as "2006-01-02", "15:04:05" for pure times,
// or "2006-01-02 15:04:05".
func serialToText(serial float64, date1904 bool) (string, bool) {
	if serial >= 0 && serial < 1 {
		d := time.Duration(math.Round(serial*86400)) * time.Second
		return time.Time{}.Add(d).Format("15:04:05"), true
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return "", false
	}
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02"), true
	}
	return t.Format("2006-01-02 15:04:05"), true
}
