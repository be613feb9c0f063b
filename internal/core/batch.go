package core

import (
	"fmt"
	"time"
)

// FileStatus is the outcome of processing one file in a batch.
type FileStatus string

const (
	StatusOK      FileStatus = "ok"
	StatusSkipped FileStatus = "skipped" // unsupported extension, never parsed
	StatusFailed  FileStatus = "failed"  // parse, selection or export error
)

// FileResult wraps one file's outcome. A failure here never stops the batch.
type FileResult struct {
	Name     string        `json:"name"`
	FileID   string        `json:"fileId,omitempty"`
	Status   FileStatus    `json:"status"`
	Warnings []string      `json:"warnings,omitempty"`
	Err      error         `json:"-"`
	Table    *Table        `json:"-"`
	Export   *ExportResult `json:"-"`
	History  History       `json:"history,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Error returns the error text, or "" on success.
func (r FileResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Plan is a fixed sequence of steps for non-interactive runs. Steps always
// run in this order: dedupe, fill, select, export.
type Plan struct {
	Dedupe    bool
	Fill      bool
	Selection Selection
	Format    Format // empty: no export
	Chart     bool   // warn when no chart can be drawn
}

// RunPlan takes a single file through the plan.
func RunPlan(f UploadedFile, plan Plan) (res FileResult) {
	start := time.Now()
	res = FileResult{Name: f.Name}
	defer func() { res.Elapsed = time.Since(start) }()

	if !f.Supported() {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.Name)
		res.Warnings = append(res.Warnings, fmt.Sprintf("skipped %s: only .csv and .xlsx are supported", f.Name))
		return res
	}

	t, err := ParseUpload(f)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	fs := NewFileState(f, t)
	res.FileID = fs.ID

	steps := []Command{}
	if plan.Dedupe {
		steps = append(steps, Command{Kind: CmdDedupe})
	}
	if plan.Fill {
		steps = append(steps, Command{Kind: CmdFill})
	}
	if plan.Selection.Mode == SelectExplicit {
		steps = append(steps, Command{Kind: CmdSelect, Selection: plan.Selection})
	}
	for _, cmd := range steps {
		if _, err := fs.Apply(cmd); err != nil {
			res.Status = StatusFailed
			res.Err = err
			res.History = fs.HistorySnapshot()
			return res
		}
	}

	if plan.Chart {
		if _, err := fs.Chart(); err != nil {
			res.Warnings = append(res.Warnings, MapError(err).Message)
		}
	}

	if plan.Format != "" {
		exp, _, err := fs.Export(plan.Format)
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			res.History = fs.HistorySnapshot()
			return res
		}
		res.Export = exp
	}

	res.Table, _ = fs.Projected()
	res.History = fs.HistorySnapshot()
	res.Status = StatusOK
	return res
}

// ProcessBatch runs the plan over every file, one after another. Each file's
// error is contained in its own result.
func ProcessBatch(files []UploadedFile, plan Plan) []FileResult {
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		results = append(results, RunPlan(f, plan))
	}
	return results
}

// BatchSummary counts outcomes.
type BatchSummary struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Summarize tallies results by status.
func Summarize(results []FileResult) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
