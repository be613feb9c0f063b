package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request id (server-side)
//   - Returned as a user-friendly message with an action and a support code
//   - Formatted for the client: HTMX fragment, JSON, or plain text

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/web/templates"
)

var (
	errNoFile         = errors.New("no file provided")
	errTooManyFiles   = errors.New("too many files")
	errInvalidRequest = errors.New("invalid request")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrFileNotFound), errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotEnoughNumeric):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrUnknownCommand),
		errors.Is(err, core.ErrMalformed),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, errNoFile),
		errors.Is(err, errTooManyFiles),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes a user-friendly response
// in the format the client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	requestID := chimw.GetReqID(r.Context())

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if status >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		// Errors land in the shared result area rather than replacing the
		// element that triggered the request.
		w.Header().Set("HX-Retarget", "#results")
		w.Header().Set("HX-Reswap", "innerHTML")
		s.renderStatus(w, r, status, templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code))
	case wantsJSON(r):
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:     userMsg.Message,
			Message:   userMsg.Message,
			Action:    userMsg.Action,
			Code:      userMsg.Code,
			RequestID: requestID,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", status)
	}
}
