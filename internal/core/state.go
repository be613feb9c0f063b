package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PreviewRows is how many rows a file view shows.
const PreviewRows = 5

// CommandKind names a user action on one file.
type CommandKind string

const (
	CmdDedupe CommandKind = "dedupe"
	CmdFill   CommandKind = "fill"
	CmdSelect CommandKind = "select"
	CmdFormat CommandKind = "format"
	CmdReset  CommandKind = "reset"
)

// Command is one discrete UI action applied to a file's state.
type Command struct {
	Kind      CommandKind
	Selection Selection // CmdSelect
	Format    Format    // CmdFormat
}

// FileState holds everything known about one uploaded file between
// requests. Cleaning commands change the working table in the order they
// arrive; the column selection is kept separately and applied on read, so
// switching back to "all columns" restores dropped columns.
type FileState struct {
	ID     string
	Upload UploadedFile

	mu        sync.Mutex
	source    *Table
	working   *Table
	selection Selection
	format    Format
	history   History
	now       func() time.Time
}

// NewFileState wraps a freshly parsed table.
func NewFileState(upload UploadedFile, t *Table) *FileState {
	fs := &FileState{
		ID:        uuid.New().String(),
		Upload:    upload,
		source:    t,
		working:   t.Clone(),
		selection: AllColumns(),
		format:    FormatCSV,
		now:       time.Now,
	}
	fs.appendOp(Operation{
		Kind:      OpIngest,
		RowsAfter: t.NumRows(),
		ColsAfter: t.NumCols(),
		Detail:    fmt.Sprintf("%s, %.2f KB", upload.Extension, upload.SizeKB()),
	})
	return fs
}

func (fs *FileState) appendOp(op Operation) Operation {
	op.Seq = len(fs.history) + 1
	op.At = fs.now()
	fs.history = append(fs.history, op)
	return op
}

// Apply runs a command and returns the history entry it produced.
func (fs *FileState) Apply(cmd Command) (Operation, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	before := fs.working.NumRows()
	switch cmd.Kind {
	case CmdDedupe:
		removed := RemoveDuplicates(fs.working)
		return fs.appendOp(Operation{
			Kind:       OpDedupe,
			RowsBefore: before,
			RowsAfter:  fs.working.NumRows(),
			ColsAfter:  fs.working.NumCols(),
			Changed:    removed,
		}), nil

	case CmdFill:
		filled := FillMissing(fs.working)
		return fs.appendOp(Operation{
			Kind:       OpFill,
			RowsBefore: before,
			RowsAfter:  before,
			ColsAfter:  fs.working.NumCols(),
			Changed:    filled,
		}), nil

	case CmdSelect:
		projected, err := Project(fs.working, cmd.Selection)
		if err != nil {
			return Operation{}, err
		}
		fs.selection = cmd.Selection
		detail := "all columns"
		if cmd.Selection.Mode == SelectExplicit {
			detail = fmt.Sprintf("%d of %d columns", projected.NumCols(), fs.working.NumCols())
		}
		return fs.appendOp(Operation{
			Kind:       OpSelect,
			RowsBefore: before,
			RowsAfter:  before,
			ColsAfter:  projected.NumCols(),
			Detail:     detail,
		}), nil

	case CmdFormat:
		if cmd.Format != FormatCSV && cmd.Format != FormatExcel {
			return Operation{}, fmt.Errorf("format %q: %w", cmd.Format, ErrUnsupportedFormat)
		}
		fs.format = cmd.Format
		return fs.appendOp(Operation{
			Kind:       OpFormat,
			RowsBefore: before,
			RowsAfter:  before,
			ColsAfter:  fs.working.NumCols(),
			Detail:     cmd.Format.Label(),
		}), nil

	case CmdReset:
		fs.working = fs.source.Clone()
		fs.selection = AllColumns()
		return fs.appendOp(Operation{
			Kind:       OpReset,
			RowsBefore: before,
			RowsAfter:  fs.working.NumRows(),
			ColsAfter:  fs.working.NumCols(),
		}), nil
	}

	return Operation{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

// Projected returns the working table restricted to the current selection.
func (fs *FileState) Projected() (*Table, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.projectedLocked()
}

func (fs *FileState) projectedLocked() (*Table, error) {
	return Project(fs.working, fs.selection)
}

// Chart builds the bar chart for the projected table.
func (fs *FileState) Chart() (*Chart, error) {
	t, err := fs.Projected()
	if err != nil {
		return nil, err
	}
	return BuildChart(t)
}

// Export serializes the projected table. An empty format uses the file's
// current format choice.
func (fs *FileState) Export(f Format) (*ExportResult, Operation, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if f == "" {
		f = fs.format
	}
	t, err := fs.projectedLocked()
	if err != nil {
		return nil, Operation{}, err
	}
	res, err := Export(t, f, fs.Upload.Name)
	if err != nil {
		return nil, Operation{}, err
	}
	fs.format = f
	op := fs.appendOp(Operation{
		Kind:       OpExport,
		RowsBefore: t.NumRows(),
		RowsAfter:  t.NumRows(),
		ColsAfter:  t.NumCols(),
		Changed:    len(res.Data),
		Detail:     res.FileName,
	})
	return res, op, nil
}

// ColumnInfo describes one column of the working table for the picker.
type ColumnInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Selected bool   `json:"selected"`
	Missing  int    `json:"missing"`
}

// FileView is a read-only snapshot for rendering.
type FileView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Extension     string       `json:"extension"`
	SizeKB        float64      `json:"sizeKb"`
	Rows          int          `json:"rows"`
	Columns       []ColumnInfo `json:"columns"`
	AllSelected   bool         `json:"allSelected"`
	DefaultPick   []string     `json:"defaultPick"`
	PreviewHeader []string     `json:"previewHeader"`
	Preview       [][]string   `json:"preview"`
	Format        Format       `json:"format"`
	Cleaned       bool         `json:"cleaned"`
	History       History      `json:"history"`
}

// View snapshots the file for rendering.
func (fs *FileState) View() FileView {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	selected := make(map[string]bool)
	for _, name := range fs.selection.Columns {
		selected[name] = true
	}
	all := fs.selection.Mode != SelectExplicit

	cols := make([]ColumnInfo, fs.working.NumCols())
	for i, c := range fs.working.Columns() {
		missing := 0
		for _, cell := range c.Cells {
			if cell.IsMissing() {
				missing++
			}
		}
		cols[i] = ColumnInfo{
			Name:     c.Name,
			Kind:     c.Kind.String(),
			Selected: all || selected[c.Name],
			Missing:  missing,
		}
	}

	view := FileView{
		ID:          fs.ID,
		Name:        fs.Upload.Name,
		Extension:   fs.Upload.Extension,
		SizeKB:      fs.Upload.SizeKB(),
		Rows:        fs.working.NumRows(),
		Columns:     cols,
		AllSelected: all,
		DefaultPick: DefaultPick(fs.working),
		Format:      fs.format,
		Cleaned:     fs.history.Cleaned(),
		History:     append(History(nil), fs.history...),
	}
	if t, err := fs.projectedLocked(); err == nil {
		view.PreviewHeader = t.ColumnNames()
		view.Preview = t.Head(PreviewRows)
	}
	return view
}

// HistorySnapshot returns a copy of the history.
func (fs *FileState) HistorySnapshot() History {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append(History(nil), fs.history...)
}
