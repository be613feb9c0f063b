package core

import (
	"errors"
	"testing"
)

func TestRunPlan(t *testing.T) {
	f := NewUploadedFile("people.csv", []byte("Name,Age,City\nA,20,Oslo\nA,20,Oslo\nB,NA,Rome\nC,40,Oslo\n"))

	res := RunPlan(f, Plan{
		Dedupe:    true,
		Fill:      true,
		Selection: Columns("Age", "Name"),
		Format:    FormatCSV,
	})
	if res.Status != StatusOK {
		t.Fatalf("Status = %s, err = %v", res.Status, res.Err)
	}

	want := "Name,Age\nA,20\nB,30\nC,40\n"
	if string(res.Export.Data) != want {
		t.Errorf("Data = %q, want %q", res.Export.Data, want)
	}
	if res.Table.NumCols() != 2 {
		t.Errorf("Table columns = %d, want 2", res.Table.NumCols())
	}

	var kinds []OperationKind
	for _, op := range res.History {
		kinds = append(kinds, op.Kind)
	}
	wantKinds := []OperationKind{OpIngest, OpDedupe, OpFill, OpSelect, OpExport}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("history = %v, want %v", kinds, wantKinds)
	}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] {
			t.Errorf("history[%d] = %s, want %s", i, kinds[i], wantKinds[i])
		}
	}
}

func TestRunPlan_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		file       UploadedFile
		plan       Plan
		wantStatus FileStatus
		wantErr    error
		wantWarn   bool
	}{
		{
			name:       "unsupported extension skipped",
			file:       NewUploadedFile("data.txt", []byte("a\n1\n")),
			plan:       Plan{Format: FormatCSV},
			wantStatus: StatusSkipped,
			wantErr:    ErrUnsupportedFormat,
			wantWarn:   true,
		},
		{
			name:       "parse error fails",
			file:       NewUploadedFile("bad.csv", []byte("a\n1,2\n")),
			plan:       Plan{Format: FormatCSV},
			wantStatus: StatusFailed,
			wantErr:    ErrMalformed,
		},
		{
			name:       "unknown column fails",
			file:       NewUploadedFile("a.csv", []byte("a\n1\n")),
			plan:       Plan{Selection: Columns("b"), Format: FormatCSV},
			wantStatus: StatusFailed,
			wantErr:    ErrUnknownColumn,
		},
		{
			name:       "chart warning does not fail",
			file:       NewUploadedFile("a.csv", []byte("a\n1\n")),
			plan:       Plan{Chart: true},
			wantStatus: StatusOK,
			wantWarn:   true,
		},
		{
			name:       "no format means no export",
			file:       NewUploadedFile("a.csv", []byte("a,b\n1,2\n")),
			plan:       Plan{Chart: true},
			wantStatus: StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := RunPlan(tt.file, tt.plan)
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (err %v)", res.Status, tt.wantStatus, res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.wantErr == nil && res.Error() != "" {
				t.Errorf("Error() = %q, want empty", res.Error())
			}
			if got := len(res.Warnings) > 0; got != tt.wantWarn {
				t.Errorf("Warnings = %v", res.Warnings)
			}
			if tt.plan.Format == "" && res.Export != nil {
				t.Error("Export should be nil without a format")
			}
		})
	}
}

func TestProcessBatch_ContainsFailures(t *testing.T) {
	files := []UploadedFile{
		NewUploadedFile("one.csv", []byte("a\n1\n")),
		NewUploadedFile("notes.txt", []byte("hello")),
		NewUploadedFile("empty.csv", nil),
		NewUploadedFile("two.csv", []byte("a\n2\n")),
	}

	results := ProcessBatch(files, Plan{Format: FormatExcel})
	if len(results) != len(files) {
		t.Fatalf("got %d results, want %d", len(results), len(files))
	}

	wantStatus := []FileStatus{StatusOK, StatusSkipped, StatusFailed, StatusOK}
	for i, res := range results {
		if res.Name != files[i].Name {
			t.Errorf("results[%d].Name = %s, want %s", i, res.Name, files[i].Name)
		}
		if res.Status != wantStatus[i] {
			t.Errorf("results[%d].Status = %s, want %s", i, res.Status, wantStatus[i])
		}
	}
	if results[3].Export == nil || results[3].Export.FileName != "two.xlsx" {
		t.Error("files after a failure should still be exported")
	}

	sum := Summarize(results)
	if sum != (BatchSummary{OK: 2, Skipped: 1, Failed: 1}) {
		t.Errorf("Summarize() = %+v", sum)
	}
}
