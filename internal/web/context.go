package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/JonMunkholm/dataprep/internal/web/middleware"
)

// sessionID returns the session resolved by the session middleware.
func sessionID(r *http.Request) string {
	return mw.SessionID(r.Context())
}

// fileID returns the {fileID} route parameter.
func fileID(r *http.Request) string {
	return chi.URLParam(r, "fileID")
}
