package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
)

// SessionHeader lets API clients pass the session id without cookies.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// SessionStore is the part of core.SessionStore the middleware uses.
type SessionStore interface {
	GetOrCreate(id string) (*core.Workspace, bool, error)
}

// Session resolves the caller's workspace from the X-Session-ID header or
// the session cookie, creating one when missing or expired. Every response
// refreshes the cookie so it expires with the session. The id is stored
// in the request context together with the client IP and user agent.
func Session(store SessionStore, cfg config.SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				if c, err := r.Cookie(cfg.CookieName); err == nil {
					id = c.Value
				}
			}

			ws, created, err := store.GetOrCreate(id)
			if err != nil {
				logging.FromContext(r.Context()).Error("session: create failed", "error", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			if created {
				logging.FromContext(r.Context()).Debug("session: created", "session_id", ws.ID)
			}

			// Lookups slide the session TTL; the cookie follows it.
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    ws.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(cfg.TTL),
			})
			w.Header().Set(SessionHeader, ws.ID)

			ctx := context.WithValue(r.Context(), sessionKey{}, ws.ID)
			ctx = logging.WithSession(ctx, ws.ID)
			ctx = core.ContextWithClient(ctx, ClientIP(r), r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the id stored by Session, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
