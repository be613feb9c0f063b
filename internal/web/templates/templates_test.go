package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestFilePanel_EscapesUserContent(t *testing.T) {
	v := core.FileView{
		ID:            "abc",
		Name:          `<script>alert(1)</script>.csv`,
		Rows:          1,
		Columns:       []core.ColumnInfo{{Name: `"quoted"`, Kind: "text", Selected: true}},
		AllSelected:   true,
		PreviewHeader: []string{`"quoted"`},
		Preview:       [][]string{{"<b>bold</b>"}},
		Format:        core.FormatCSV,
	}

	out := render(t, FilePanel(v, Success("Done & dusted")))

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Done &amp; dusted")
	assert.Contains(t, out, `id="file-abc"`)
	assert.Contains(t, out, `<input type="checkbox" name="all" value="on" checked>`)
	assert.Contains(t, out, `value="csv" checked`)
}

func TestPreviewTable(t *testing.T) {
	out := render(t, PreviewTable([]string{"a", "b"}, [][]string{{"1", ""}}))
	assert.Contains(t, out, `<td class="index">0</td><td>1</td><td class="missing">&lt;NA&gt;</td>`)

	out = render(t, PreviewTable(nil, nil))
	assert.Contains(t, out, "No columns selected.")
}

func TestUploadResults(t *testing.T) {
	out := render(t, UploadResults([]UploadResult{
		{Name: "a.csv", FileID: "x1", Status: core.StatusOK},
		{Name: "b.txt", Status: core.StatusSkipped, Message: "only .csv and .xlsx", Code: "FILE002"},
		{Name: "c.csv", Status: core.StatusFailed, Message: "bad", Code: "FILE003"},
	}))

	assert.Contains(t, out, `<a href="#file-x1">a.csv</a> uploaded`)
	assert.Contains(t, out, `b.txt skipped: only .csv and .xlsx <small>(FILE002)</small>`)
	assert.Contains(t, out, `<li class="status-failed">Error processing c.csv: bad`)
	assert.Equal(t, 3, strings.Count(out, "<li"))

	assert.Empty(t, render(t, UploadResults(nil)))
}

func TestUploadFragment_AppendsPanelsOutOfBand(t *testing.T) {
	out := render(t, UploadFragment(
		[]UploadResult{{Name: "a.csv", FileID: "x1", Status: core.StatusOK}},
		[]core.FileView{{ID: "x1", Name: "a.csv"}},
	))
	assert.Contains(t, out, `<div hx-swap-oob="beforeend:#files"><section class="file" id="file-x1">`)

	out = render(t, UploadFragment([]UploadResult{{Name: "b.txt", Status: core.StatusSkipped}}, nil))
	assert.NotContains(t, out, "hx-swap-oob")
}

func TestChartSVG(t *testing.T) {
	one, three, two := 1.0, 3.0, 2.0
	ch := &core.Chart{
		Rows: 2,
		Series: [2]core.Series{
			{Name: "x", Values: []*float64{&one, &three}},
			{Name: "y<z", Values: []*float64{&two, nil}},
		},
		Min: 0,
		Max: 3,
	}

	out := render(t, ChartSVG(ch))
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.True(t, strings.HasSuffix(out, "</svg>"))
	// three bars plus two legend swatches
	assert.Equal(t, 5, strings.Count(out, "<rect"))
	assert.Contains(t, out, "y&lt;z")
	assert.Contains(t, out, "x[1] = 3")
}

func TestHistoryList(t *testing.T) {
	out := render(t, HistoryList(core.History{
		{Seq: 1, Kind: core.OpIngest, Detail: ".csv, 0.10 KB"},
		{Seq: 2, Kind: core.OpDedupe, Changed: 2, RowsBefore: 5, RowsAfter: 3},
		{Seq: 3, Kind: core.OpFill, Changed: 4},
	}))
	assert.Contains(t, out, "ingest: .csv, 0.10 KB")
	assert.Contains(t, out, "dedupe: 2 duplicate rows removed (5 &rarr; 3)")
	assert.Contains(t, out, "fill: 4 missing cells filled")

	assert.Empty(t, render(t, HistoryList(nil)))
}

func TestSummaryFooter(t *testing.T) {
	out := render(t, SummaryFooter(Summary{}))
	assert.NotContains(t, out, "file(s)")
	assert.Contains(t, out, "Thank you for using Smart Data Processor!")

	out = render(t, SummaryFooter(Summary{Files: 2, Operations: 3, Exports: 1}))
	assert.Contains(t, out, "2 file(s) in this session, 3 operation(s) applied, 1 export(s).")
}

func TestErrorAlert(t *testing.T) {
	out := render(t, ErrorAlert("Bad <file>", "Try again", "FILE003"))
	assert.Contains(t, out, "<strong>Bad &lt;file&gt;</strong>")
	assert.Contains(t, out, "<p>Try again</p>")
	assert.Contains(t, out, "Code: FILE003")

	out = render(t, ErrorAlert("Oops", "", ""))
	assert.NotContains(t, out, "<p>")
	assert.NotContains(t, out, "Code:")
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1 KB"},
		{100 << 20, "100 MB"},
		{3 << 30, "3 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in), "humanBytes(%d)", tt.in)
	}
}

func TestPage(t *testing.T) {
	out := render(t, Page(PageData{MaxFileSize: 100 << 20}))

	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, `<script src="https://unpkg.com/htmx.org@1.9.12" crossorigin="anonymous"></script>`)
	assert.Contains(t, out, "<small>Up to 100 MB per file</small>")
	assert.Contains(t, out, `<div id="results"></div><div id="files"></div>`)
	assert.True(t, strings.HasSuffix(out, "</main></body></html>"))
}

func TestFilePanel_CommandForms(t *testing.T) {
	out := render(t, FilePanel(core.FileView{ID: "abc", Name: "a.csv"}, nil))

	for _, cmd := range []string{"dedupe", "fill", "reset", "columns"} {
		assert.Contains(t, out, `action="/files/abc/`+cmd+`" hx-post="/files/abc/`+cmd+`" hx-target="#file-abc" hx-swap="outerHTML"`)
	}
	assert.Contains(t, out, `<a class="button" href="/files/abc/chart" hx-get="/files/abc/chart" hx-target="#chart-abc"`)
	assert.Contains(t, out, `hx-delete="/files/abc" hx-target="#file-abc" hx-swap="outerHTML" hx-confirm="Remove a.csv?"`)
	assert.NotContains(t, out, "alert")
}

func TestColumnPicker_Selection(t *testing.T) {
	cols := []core.ColumnInfo{
		{Name: "a", Kind: "numeric", Selected: true},
		{Name: "b", Kind: "text", Selected: true},
		{Name: "c", Kind: "text"},
	}

	// everything kept: the default pick is suggested
	out := render(t, ColumnPicker(core.FileView{ID: "x", Columns: cols, AllSelected: true, DefaultPick: []string{"a"}}))
	assert.Contains(t, out, `<option value="a" selected>a (numeric)</option>`)
	assert.Contains(t, out, `<option value="b">b (text)</option>`)

	// explicit projection: the kept columns are marked
	out = render(t, ColumnPicker(core.FileView{ID: "x", Columns: cols}))
	assert.Contains(t, out, `<input type="checkbox" name="all" value="on">`)
	assert.Contains(t, out, `<option value="a" selected>`)
	assert.Contains(t, out, `<option value="b" selected>`)
	assert.Contains(t, out, `<option value="c">`)
}

func TestLayoutChart(t *testing.T) {
	two, minusOne := 2.0, -1.0
	c := layoutChart(&core.Chart{
		Rows: 1,
		Series: [2]core.Series{
			{Name: "up", Values: []*float64{&two}},
			{Name: "down", Values: []*float64{&minusOne}},
		},
		Min: -1,
		Max: 2,
	})

	assert.Equal(t, "0 0 720 260", c.ViewBox)
	assert.Equal(t, "161.3", c.Zero)
	require.Len(t, c.Bars, 2)
	// positive bars rise from the zero line, negative ones hang below it
	assert.Equal(t, chartBar{X: "100.80", Y: "36.00", Width: "259.20", Height: "125.33", Fill: "#3498db", Title: "up[0] = 2"}, c.Bars[0])
	assert.Equal(t, chartBar{X: "360.00", Y: "161.33", Width: "259.20", Height: "62.67", Fill: "#e67e22", Title: "down[0] = -1"}, c.Bars[1])
	require.Len(t, c.Legend, 2)
	assert.Equal(t, chartLegend{X: "196.0", TextX: "210.0", Fill: "#e67e22", Name: "down"}, c.Legend[1])
}
