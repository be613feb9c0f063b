package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
)

func TestSession(t *testing.T) {
	store := core.NewSessionStore(time.Hour)
	cfg := config.SessionConfig{TTL: time.Hour, CookieName: "sid"}

	var gotID, gotIP, gotUA string
	h := Session(store, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = SessionID(r.Context())
		gotIP, gotUA = core.ClientFromContext(r.Context())
	}))

	// first visit creates a session and sets the cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, cookies[0].Value, gotID)
	assert.Equal(t, gotID, rec.Header().Get(SessionHeader))
	assert.Equal(t, "192.0.2.1", gotIP)
	assert.Equal(t, "test-agent", gotUA)
	first := gotID

	firstExpiry := cookies[0].Expires

	// cookie reuses it and is re-issued with a later expiry
	time.Sleep(1100 * time.Millisecond)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: first})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, first, gotID)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, first, cookies[0].Value)
	assert.True(t, cookies[0].Expires.After(firstExpiry), "expiry slides with the session")

	// header takes precedence over the cookie
	other, err := store.Create()
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: first})
	req.Header.Set(SessionHeader, other.ID)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, other.ID, gotID)

	// unknown id gets a fresh session
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "expired")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "expired", gotID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestSessionID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, SessionID(req.Context()))
}
