package web

// handlers_common.go holds helpers shared by the page and API handlers.

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/web/templates"
)

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// renderStatus renders an HTML component with a status code. Output is
// buffered so a render failure can still produce a clean 500.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, c templ.Component) {
	s.renderStatus(w, r, http.StatusOK, c)
}

// readUploads reads every file of the multipart field "files" (or "file").
// Files over the size limit are returned without data; the service rejects
// them per file so the rest of the batch still goes through.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	limit := s.cfg.Upload.MaxFileSize
	maxBody := limit*int64(s.cfg.Upload.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("parse upload form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, errNoFile
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: %d (max %d)", errTooManyFiles, len(headers), s.cfg.Upload.MaxFiles)
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, h := range headers {
		if h.Size > limit {
			f := core.NewUploadedFile(h.Filename, nil)
			f.Size = h.Size
			files = append(files, f)
			continue
		}

		src, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		files = append(files, core.NewUploadedFile(h.Filename, data))
	}
	return files, nil
}

// toUploadResults converts service results for the result list.
func toUploadResults(results []core.FileResult) []templates.UploadResult {
	out := make([]templates.UploadResult, len(results))
	for i, res := range results {
		ur := templates.UploadResult{Name: res.Name, FileID: res.FileID, Status: res.Status}
		if res.Err != nil {
			msg := core.MapError(res.Err)
			ur.Message, ur.Code = msg.Message, msg.Code
			if res.Status == core.StatusSkipped && len(res.Warnings) > 0 {
				ur.Message = res.Warnings[0]
			}
		}
		out[i] = ur
	}
	return out
}

// summarize counts files, cleaning operations and exports across views.
func summarize(views []core.FileView) templates.Summary {
	sum := templates.Summary{Files: len(views)}
	for _, v := range views {
		for _, op := range v.History {
			switch op.Kind {
			case core.OpIngest:
			case core.OpExport:
				sum.Exports++
			default:
				sum.Operations++
			}
		}
	}
	return sum
}

// writeDownload sends an export as an attachment.
func writeDownload(w http.ResponseWriter, res *core.ExportResult) {
	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
