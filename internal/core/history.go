package core

import (
	"context"
	"time"
)

// OperationKind names a step applied to a file.
type OperationKind string

const (
	OpIngest OperationKind = "ingest"
	OpDedupe OperationKind = "dedupe"
	OpFill   OperationKind = "fill"
	OpSelect OperationKind = "select"
	OpFormat OperationKind = "format"
	OpReset  OperationKind = "reset"
	OpExport OperationKind = "export"
)

// Operation is one entry in a file's transformation history.
type Operation struct {
	Seq        int           `json:"seq"`
	Kind       OperationKind `json:"kind"`
	At         time.Time     `json:"at"`
	RowsBefore int           `json:"rowsBefore"`
	RowsAfter  int           `json:"rowsAfter"`
	ColsAfter  int           `json:"colsAfter"`
	Changed    int           `json:"changed"` // rows removed, cells filled, bytes exported
	Detail     string        `json:"detail,omitempty"`
}

// History is the ordered list of operations applied to one file.
type History []Operation

// Applied reports whether an operation of the given kind ran at least once.
func (h History) Applied(kind OperationKind) bool {
	for _, op := range h {
		if op.Kind == kind {
			return true
		}
	}
	return false
}

// Cleaned reports whether dedupe or fill ran since the last reset.
func (h History) Cleaned() bool {
	for i := len(h) - 1; i >= 0; i-- {
		switch h[i].Kind {
		case OpReset, OpIngest:
			return false
		case OpDedupe, OpFill:
			return true
		}
	}
	return false
}

// OperationEvent is what gets persisted for every applied operation.
type OperationEvent struct {
	SessionID string
	FileID    string
	FileName  string
	Operation Operation
	IPAddress string
	UserAgent string
}

// OperationRecorder persists history entries outside the process.
type OperationRecorder interface {
	RecordOperation(ctx context.Context, ev OperationEvent) error
}

// ExportArchiver keeps a copy of exported files. Returns the stored key.
type ExportArchiver interface {
	ArchiveExport(ctx context.Context, sessionID, fileID string, res *ExportResult) (string, error)
}

// Observer receives pipeline measurements.
type Observer interface {
	FileIngested(extension, outcome string, elapsed time.Duration)
	OperationApplied(kind OperationKind, changed int)
	FileExported(format Format, size int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, OperationEvent) error { return nil }

type nopObserver struct{}

func (nopObserver) FileIngested(string, string, time.Duration) {}
func (nopObserver) OperationApplied(OperationKind, int)         {}
func (nopObserver) FileExported(Format, int)                    {}
