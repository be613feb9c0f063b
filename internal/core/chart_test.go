package core

import (
	"errors"
	"testing"
)

func TestBuildChart(t *testing.T) {
	tbl := mustCSV(t, "name,a,note,c,d\nx,1,hi,3,9\ny,NA,yo,4,9\nz,-2,,5,9\n")

	ch, err := BuildChart(tbl)
	if err != nil {
		t.Fatalf("BuildChart() error = %v", err)
	}

	if ch.Series[0].Name != "a" || ch.Series[1].Name != "c" {
		t.Errorf("series = %s, %s; want the first two numeric columns a, c", ch.Series[0].Name, ch.Series[1].Name)
	}
	if ch.Rows != 3 {
		t.Errorf("Rows = %d, want 3", ch.Rows)
	}
	if ch.Series[0].Values[1] != nil {
		t.Error("missing value should be a gap")
	}
	if v := ch.Series[1].Values[2]; v == nil || *v != 5 {
		t.Errorf("c[2] = %v, want 5", v)
	}
	if ch.Min != -2 || ch.Max != 5 {
		t.Errorf("range = [%v, %v], want [-2, 5]", ch.Min, ch.Max)
	}
}

func TestBuildChart_AxisIncludesZero(t *testing.T) {
	ch, err := BuildChart(mustCSV(t, "a,b\n10,20\n30,40\n"))
	if err != nil {
		t.Fatalf("BuildChart() error = %v", err)
	}
	if ch.Min != 0 || ch.Max != 40 {
		t.Errorf("range = [%v, %v], want [0, 40]", ch.Min, ch.Max)
	}
}

func TestBuildChart_NotEnoughNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no columns", "\n"},
		{"text only", "a,b\nx,y\n"},
		{"one numeric", "a,b\n1,y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := MustTable()
			if tt.input != "\n" {
				tbl = mustCSV(t, tt.input)
			}
			if _, err := BuildChart(tbl); !errors.Is(err, ErrNotEnoughNumeric) {
				t.Errorf("BuildChart() error = %v, want ErrNotEnoughNumeric", err)
			}
		})
	}
}
