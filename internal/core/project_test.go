package core

import (
	"errors"
	"strings"
	"testing"
)

func TestProject(t *testing.T) {
	src := "a,b,c,d\n1,2,3,4\n5,6,7,8\n"

	tests := []struct {
		name     string
		sel      Selection
		wantCols string
		wantRows int
		wantErr  error
	}{
		{"all columns", AllColumns(), "a,b,c,d", 2, nil},
		{"keeps table order", Columns("d", "a"), "a,d", 2, nil},
		{"duplicates collapse", Columns("b", "b"), "b", 2, nil},
		{"empty keeps rows", Columns(), "", 2, nil},
		{"unknown column", Columns("a", "zz"), "", 0, ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(mustCSV(t, src), tt.sel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Project() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Project() error = %v", err)
			}
			if cols := strings.Join(got.ColumnNames(), ","); cols != tt.wantCols {
				t.Errorf("columns = %q, want %q", cols, tt.wantCols)
			}
			if got.NumRows() != tt.wantRows {
				t.Errorf("NumRows() = %d, want %d", got.NumRows(), tt.wantRows)
			}
		})
	}
}

func TestProject_ErrorNamesColumns(t *testing.T) {
	_, err := Project(mustCSV(t, "a\n1\n"), Columns("z", "y"))
	if err == nil || !strings.Contains(err.Error(), "y, z") {
		t.Errorf("error should list unknown columns sorted: %v", err)
	}
}

func TestProject_DoesNotAlias(t *testing.T) {
	src := mustCSV(t, "a,b\n1,NA\n")
	got, err := Project(src, Columns("b"))
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	FillMissing(src)
	src.cols[1].Cells[0] = Number(9)

	if !got.Columns()[0].Cells[0].IsMissing() {
		t.Error("projection shares cells with its source")
	}
}

func TestDefaultPick(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"a,b", "a,b"},
		{"a,b,c,d,e", "a,b,c,d,e"},
		{"a,b,c,d,e,f,g", "a,b,c,d,e"},
	}
	for _, tt := range tests {
		got := strings.Join(DefaultPick(mustCSV(t, tt.header+"\n")), ",")
		if got != tt.want {
			t.Errorf("DefaultPick(%s) = %s, want %s", tt.header, got, tt.want)
		}
	}
}
