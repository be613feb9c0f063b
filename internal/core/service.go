package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxFileSize is the per-file upload limit when none is configured.
const DefaultMaxFileSize = 100 * 1024 * 1024

// ServiceOptions configures a Service. Zero values fall back to defaults and
// no-op collaborators.
type ServiceOptions struct {
	SessionTTL    time.Duration
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration

	Recorder OperationRecorder // optional, persists history
	Archiver ExportArchiver    // optional, keeps exported files
	Observer Observer          // optional, metrics
}

// Service is the entry point for every file operation. Transport layers call
// it with a session id; it owns the session store and ingest limiter.
type Service struct {
	sessions    *SessionStore
	limiter     *IngestLimiter
	maxFileSize int64

	recorder OperationRecorder
	archiver ExportArchiver
	observer Observer
}

// NewService creates a Service. Call Start to begin session expiry.
func NewService(opts ServiceOptions) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	s := &Service{
		sessions:    NewSessionStore(opts.SessionTTL),
		limiter:     NewIngestLimiter(opts.MaxConcurrent, opts.MaxWait),
		maxFileSize: opts.MaxFileSize,
		recorder:    opts.Recorder,
		archiver:    opts.Archiver,
		observer:    opts.Observer,
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// Start runs session expiry in the background until Stop.
func (s *Service) Start() { go s.sessions.Start() }

// Stop ends session expiry.
func (s *Service) Stop() { s.sessions.Stop() }

// Sessions exposes the store for session bootstrap in transports.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Ingest parses each file into the session's workspace. Files are handled
// one after another and each outcome is reported separately: unsupported
// names are skipped with a warning, parse errors fail only that file.
func (s *Service) Ingest(ctx context.Context, sessionID string, files []UploadedFile) ([]FileResult, error) {
	ws, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.ingestOne(ctx, ws, f))
	}
	return results, nil
}

func (s *Service) ingestOne(ctx context.Context, ws *Workspace, f UploadedFile) FileResult {
	start := time.Now()
	res := FileResult{Name: f.Name}
	logger := slog.Default().With("session", ws.ID, "file", f.Name, "size", f.Size)

	finish := func(outcome string) FileResult {
		res.Elapsed = time.Since(start)
		s.observer.FileIngested(f.Extension, outcome, res.Elapsed)
		return res
	}

	if !f.Supported() {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.Name)
		res.Warnings = []string{fmt.Sprintf("Skipped %s: only .csv and .xlsx files are supported", f.Name)}
		logger.Warn("upload skipped", "extension", f.Extension)
		return finish(string(StatusSkipped))
	}

	if f.Size > s.maxFileSize {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, f.Size, s.maxFileSize)
		logger.Warn("upload rejected", "error", res.Err)
		return finish(string(StatusFailed))
	}

	t, err := ParseUpload(f)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logger.Warn("upload parse failed", "error", err)
		return finish(string(StatusFailed))
	}

	fs := ws.Add(NewFileState(f, t))
	res.FileID = fs.ID
	res.Status = StatusOK
	res.Table = t
	res.History = fs.HistorySnapshot()
	s.record(ctx, ws.ID, fs, res.History[len(res.History)-1])

	logger.Info("upload parsed", "file_id", fs.ID, "rows", t.NumRows(), "columns", t.NumCols())
	return finish(string(StatusOK))
}

// Files returns views of every file in the session, in upload order.
func (s *Service) Files(sessionID string) ([]FileView, error) {
	ws, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	files := ws.Files()
	views := make([]FileView, len(files))
	for i, fs := range files {
		views[i] = fs.View()
	}
	return views, nil
}

// File returns the state for one file.
func (s *Service) File(sessionID, fileID string) (*FileState, error) {
	ws, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return ws.File(fileID)
}

// View snapshots one file.
func (s *Service) View(sessionID, fileID string) (FileView, error) {
	fs, err := s.File(sessionID, fileID)
	if err != nil {
		return FileView{}, err
	}
	return fs.View(), nil
}

// Apply runs a command on one file and records it.
func (s *Service) Apply(ctx context.Context, sessionID, fileID string, cmd Command) (Operation, error) {
	fs, err := s.File(sessionID, fileID)
	if err != nil {
		return Operation{}, err
	}

	op, err := fs.Apply(cmd)
	if err != nil {
		return Operation{}, err
	}

	s.observer.OperationApplied(op.Kind, op.Changed)
	s.record(ctx, sessionID, fs, op)

	slog.Default().Debug("operation applied",
		"session", sessionID,
		"file_id", fileID,
		"operation", op.Kind,
		"changed", op.Changed,
		"rows", op.RowsAfter,
	)
	return op, nil
}

// Chart builds the chart for one file's projected table.
func (s *Service) Chart(sessionID, fileID string) (*Chart, error) {
	fs, err := s.File(sessionID, fileID)
	if err != nil {
		return nil, err
	}
	return fs.Chart()
}

// Export serializes one file. When an archiver is configured a copy is
// stored; archive failures are logged and do not fail the download.
func (s *Service) Export(ctx context.Context, sessionID, fileID string, f Format) (*ExportResult, error) {
	fs, err := s.File(sessionID, fileID)
	if err != nil {
		return nil, err
	}

	res, op, err := fs.Export(f)
	if err != nil {
		return nil, err
	}

	s.observer.FileExported(res.Format, len(res.Data))
	s.record(ctx, sessionID, fs, op)

	if s.archiver != nil {
		key, err := s.archiver.ArchiveExport(ctx, sessionID, fileID, res)
		if err != nil {
			slog.Default().Warn("export archive failed", "file_id", fileID, "error", err)
		} else {
			slog.Default().Debug("export archived", "file_id", fileID, "key", key)
		}
	}
	return res, nil
}

// Remove drops a file from the session.
func (s *Service) Remove(sessionID, fileID string) error {
	ws, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return ws.Remove(fileID)
}

// record persists an operation. Failures are logged only.
func (s *Service) record(ctx context.Context, sessionID string, fs *FileState, op Operation) {
	ip, ua := ClientFromContext(ctx)
	err := s.recorder.RecordOperation(ctx, OperationEvent{
		SessionID: sessionID,
		FileID:    fs.ID,
		FileName:  fs.Upload.Name,
		Operation: op,
		IPAddress: ip,
		UserAgent: ua,
	})
	if err != nil {
		slog.Default().Warn("record operation failed",
			"file_id", fs.ID,
			"operation", op.Kind,
			"error", err,
		)
	}
}

// LimiterStatus reports the ingest limiter state.
func (s *Service) LimiterStatus() IngestLimiterStatus {
	return s.limiter.Status()
}

// WaitForIngests blocks until in-flight ingests finish or ctx ends.
func (s *Service) WaitForIngests(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
