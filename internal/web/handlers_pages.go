package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/web/templates"
)

// handleIndex renders the page with every file of the session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.Files(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderHTML(w, r, templates.Page(s.pageData(views, nil)))
}

func (s *Server) pageData(views []core.FileView, results []templates.UploadResult) templates.PageData {
	return templates.PageData{
		Files:       views,
		Results:     results,
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		Summary:     summarize(views),
	}
}

// handleUpload ingests every posted file. Each file gets its own result; a
// bad file never hides the others.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sid := sessionID(r)
	results, err := s.service.Ingest(r.Context(), sid, files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload processed",
		"files", len(files),
		"summary", core.Summarize(results),
	)

	if isHTMX(r) {
		var added []core.FileView
		for _, res := range results {
			if res.Status != core.StatusOK {
				continue
			}
			if v, err := s.service.View(sid, res.FileID); err == nil {
				added = append(added, v)
			}
		}
		s.renderHTML(w, r, templates.UploadFragment(toUploadResults(results), added))
		return
	}

	views, err := s.service.Files(sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderHTML(w, r, templates.Page(s.pageData(views, toUploadResults(results))))
}

// handleFilePanel renders one file: the panel fragment for HTMX, otherwise a
// page holding just that file.
func (s *Server) handleFilePanel(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.View(sessionID(r), fileID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.renderHTML(w, r, templates.FilePanel(v, nil))
		return
	}
	s.renderHTML(w, r, templates.Page(s.pageData([]core.FileView{v}, nil)))
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	s.applyCommand(w, r, core.Command{Kind: core.CmdDedupe})
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	s.applyCommand(w, r, core.Command{Kind: core.CmdFill})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.applyCommand(w, r, core.Command{Kind: core.CmdReset})
}

// handleColumns applies the column picker: all=on keeps every column,
// otherwise the posted columns are kept in table order.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	sel := core.Columns(r.PostForm["columns"]...)
	if r.PostForm.Get("all") == "on" {
		sel = core.AllColumns()
	}
	s.applyCommand(w, r, core.Command{Kind: core.CmdSelect, Selection: sel})
}

// applyCommand runs a command and re-renders the file panel with a notice.
// Plain form posts are redirected back to the page.
func (s *Server) applyCommand(w http.ResponseWriter, r *http.Request, cmd core.Command) {
	sid, id := sessionID(r), fileID(r)
	op, err := s.service.Apply(r.Context(), sid, id, cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "file_id", id).Info("command applied", "kind", op.Kind, "changed", op.Changed)

	if !isHTMX(r) {
		http.Redirect(w, r, "/#"+templates.PanelID(id), http.StatusSeeOther)
		return
	}

	v, err := s.service.View(sid, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderHTML(w, r, templates.FilePanel(v, notice(op)))
}

// notice describes what an operation did.
func notice(op core.Operation) templ.Component {
	switch op.Kind {
	case core.OpDedupe:
		return templates.Success(fmt.Sprintf("Duplicates removed! %d row(s) dropped.", op.Changed))
	case core.OpFill:
		return templates.Success(fmt.Sprintf("Missing values filled! %d cell(s) updated.", op.Changed))
	case core.OpSelect:
		return templates.Success(fmt.Sprintf("Keeping %s.", op.Detail))
	case core.OpReset:
		return templates.Success("Restored the file as uploaded.")
	}
	return nil
}

// handleChart renders the bar chart, or a warning when the table has fewer
// than two numeric columns.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ch, err := s.service.Chart(sessionID(r), fileID(r))
	if errors.Is(err, core.ErrNotEnoughNumeric) {
		s.renderHTML(w, r, templates.Warning("Not enough numeric columns for visualization."))
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderHTML(w, r, templates.ChartSVG(ch))
}

// handleExport converts the file and sends it as a download. Without a
// format the file's remembered choice is used.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	var format core.Format
	if raw := r.PostForm.Get("format"); raw != "" {
		f, ok := core.ParseFormat(raw)
		if !ok {
			s.respondError(w, r, fmt.Errorf("export format %q: %w", raw, core.ErrUnsupportedFormat))
			return
		}
		format = f
	}

	res, err := s.service.Export(r.Context(), sessionID(r), fileID(r), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDownload(w, res)
}

// handleRemoveFile drops a file. HTMX swaps the panel out with the empty
// body; plain requests go back to the page.
func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Remove(sessionID(r), fileID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
