package core

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExport_CSV(t *testing.T) {
	tbl := mustCSV(t, "Name,Note,Age\nA,\"x, y\",20\nB,,NA\n")

	res, err := Export(tbl, FormatCSV, "people.xlsx")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	want := "Name,Note,Age\nA,\"x, y\",20\nB,,\n"
	if string(res.Data) != want {
		t.Errorf("Data = %q, want %q", res.Data, want)
	}
	if res.FileName != "people.csv" {
		t.Errorf("FileName = %q, want people.csv", res.FileName)
	}
	if res.MIMEType != MimeCSV {
		t.Errorf("MIMEType = %q", res.MIMEType)
	}

	again, err := ReadCSV(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !again.Equal(tbl) {
		t.Error("CSV export does not read back to the same table")
	}
}

func TestExport_Excel(t *testing.T) {
	tbl := mustCSV(t, "Name,Age\nA,20.5\nB,NA\n")

	res, err := Export(tbl, FormatExcel, "people.csv")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.FileName != "people.xlsx" || res.MIMEType != MimeXLSX {
		t.Errorf("FileName = %q, MIMEType = %q", res.FileName, res.MIMEType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != ExportSheetName {
		t.Errorf("sheets = %v, want [%s]", sheets, ExportSheetName)
	}

	again, err := ReadXLSX(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if !again.Equal(tbl) {
		t.Error("Excel export does not read back to the same table")
	}
}

func TestExport_ZeroColumns(t *testing.T) {
	tbl, err := Project(mustCSV(t, "a\n1\n"), Columns())
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	res, err := Export(tbl, FormatCSV, "a.csv")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(res.Data) != 0 {
		t.Errorf("Data = %q, want empty", res.Data)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	if _, err := Export(mustCSV(t, "a\n1\n"), Format("json"), "a.csv"); err == nil {
		t.Error("Export() expected error for unknown format")
	}
}

func TestExportFileName(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{"data.csv", FormatExcel, "data.xlsx"},
		{"data.CSV", FormatExcel, "data.xlsx"},
		{"data.xlsx", FormatCSV, "data.csv"},
		{"report.v2.csv", FormatCSV, "report.v2.csv"},
		{"noext", FormatCSV, "noext.csv"},
		{"dir/nested.csv", FormatExcel, "nested.xlsx"},
		{".csv", FormatCSV, "export.csv"},
	}
	for _, tt := range tests {
		if got := ExportFileName(tt.name, tt.format); got != tt.want {
			t.Errorf("ExportFileName(%q, %s) = %q, want %q", tt.name, tt.format, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in     string
		want   Format
		wantOK bool
	}{
		{"csv", FormatCSV, true},
		{"CSV", FormatCSV, true},
		{"excel", FormatExcel, true},
		{" xlsx ", FormatExcel, true},
		{"json", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFormat(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
