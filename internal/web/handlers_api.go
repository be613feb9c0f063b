package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
)

// CommandRequest is the body of POST /api/files/{fileID}/commands.
type CommandRequest struct {
	Command string   `json:"command" validate:"required,oneof=dedupe fill select format reset"`
	All     bool     `json:"all"`
	Columns []string `json:"columns" validate:"omitempty,dive,required"`
	Format  string   `json:"format" validate:"omitempty,oneof=csv excel xlsx"`
}

// Bind implements render.Binder.
func (c *CommandRequest) Bind(*http.Request) error {
	c.Command = strings.ToLower(strings.TrimSpace(c.Command))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Command == string(core.CmdFormat) && c.Format == "" {
		return errors.New("format is required for the format command")
	}
	return nil
}

// command converts the request into a core command.
func (c *CommandRequest) command() core.Command {
	cmd := core.Command{Kind: core.CommandKind(c.Command)}
	switch cmd.Kind {
	case core.CmdSelect:
		cmd.Selection = core.Columns(c.Columns...)
		if c.All {
			cmd.Selection = core.AllColumns()
		}
	case core.CmdFormat:
		cmd.Format, _ = core.ParseFormat(c.Format)
	}
	return cmd
}

// ExportRequest is the optional body of POST /api/files/{fileID}/export.
type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv excel xlsx"`
}

// Bind implements render.Binder.
func (e *ExportRequest) Bind(*http.Request) error {
	e.Format = strings.ToLower(strings.TrimSpace(e.Format))
	return nil
}

// CommandResponse reports the applied operation and the file afterwards.
type CommandResponse struct {
	Operation core.Operation `json:"operation"`
	File      core.FileView  `json:"file"`
}

// UploadResponse is one file's ingest outcome.
type UploadResponse struct {
	Name      string          `json:"name"`
	FileID    string          `json:"fileId,omitempty"`
	Status    core.FileStatus `json:"status"`
	Rows      int             `json:"rows,omitempty"`
	Columns   int             `json:"columns,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// SeriesResponse is one chart series. Null values are gaps.
type SeriesResponse struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// ChartResponse is the chart data for API clients.
type ChartResponse struct {
	Rows   int              `json:"rows"`
	Series []SeriesResponse `json:"series"`
	Min    float64          `json:"min"`
	Max    float64          `json:"max"`
}

// bind decodes and validates a JSON body.
func (s *Server) bind(r *http.Request, v render.Binder) error {
	if err := render.Bind(r, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

// handleAPIStatus reports session and ingest limiter state.
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"sessionId": sessionID(r),
		"sessions":  s.service.Sessions().Len(),
		"ingest":    s.service.LimiterStatus(),
	})
}

// handleAPIListFiles returns every file of the session.
func (s *Server) handleAPIListFiles(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.Files(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if views == nil {
		views = []core.FileView{}
	}
	render.JSON(w, r, map[string]any{
		"sessionId": sessionID(r),
		"files":     views,
		"summary":   summarize(views),
	})
}

// handleAPIUpload ingests multipart files and reports each outcome.
func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results, err := s.service.Ingest(r.Context(), sessionID(r), files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]UploadResponse, len(results))
	for i, res := range results {
		ur := UploadResponse{
			Name:      res.Name,
			FileID:    res.FileID,
			Status:    res.Status,
			Warnings:  res.Warnings,
			ElapsedMs: res.Elapsed.Milliseconds(),
		}
		if res.Table != nil {
			ur.Rows, ur.Columns = res.Table.NumRows(), res.Table.NumCols()
		}
		if res.Err != nil {
			msg := core.MapError(res.Err)
			ur.Error, ur.Code = msg.Message, msg.Code
		}
		out[i] = ur
	}

	logging.FromContext(r.Context()).Info("api upload processed", "files", len(files))
	render.JSON(w, r, map[string]any{
		"sessionId": sessionID(r),
		"results":   out,
		"summary":   core.Summarize(results),
	})
}

// handleAPIGetFile returns one file view.
func (s *Server) handleAPIGetFile(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.View(sessionID(r), fileID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

// handleAPIRemoveFile drops a file.
func (s *Server) handleAPIRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Remove(sessionID(r), fileID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// handleAPICommand applies one command.
func (s *Server) handleAPICommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := s.bind(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	sid, id := sessionID(r), fileID(r)
	op, err := s.service.Apply(r.Context(), sid, id, req.command())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "file_id", id).Info("command applied",
		"kind", op.Kind,
		"changed", op.Changed,
		"rows", op.RowsAfter,
	)

	v, err := s.service.View(sid, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, CommandResponse{Operation: op, File: v})
}

// handleAPIChart returns the chart series.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	ch, err := s.service.Chart(sessionID(r), fileID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := ChartResponse{Rows: ch.Rows, Min: ch.Min, Max: ch.Max}
	for _, series := range ch.Series {
		resp.Series = append(resp.Series, SeriesResponse{Name: series.Name, Values: series.Values})
	}
	render.JSON(w, r, resp)
}

// handleAPIExport returns the converted file. The body is optional; without
// a format the remembered choice is used.
func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if r.ContentLength != 0 {
		if err := s.bind(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	var format core.Format
	if req.Format != "" {
		format, _ = core.ParseFormat(req.Format)
	}

	res, err := s.service.Export(r.Context(), sessionID(r), fileID(r), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDownload(w, res)
}
