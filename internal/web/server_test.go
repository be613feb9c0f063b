package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/metrics"
	mw "github.com/JonMunkholm/dataprep/internal/web/middleware"
)

const peopleCSV = "Name,Age\nA,20\nA,20\nB,NA\nC,40\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, MaxFiles: 3, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Session:  config.SessionConfig{TTL: time.Hour, CookieName: "sid"},
		Security: config.SecurityConfig{EnableCSP: true},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// testClient keeps the session id between requests like a browser would.
type testClient struct {
	t   *testing.T
	h   http.Handler
	sid string
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...Option) *testClient {
	t.Helper()
	svc := core.NewService(core.ServiceOptions{
		SessionTTL:    cfg.Session.TTL,
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	})
	return &testClient{t: t, h: NewServer(svc, cfg, opts...).Router()}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	if c.sid != "" {
		req.Header.Set(mw.SessionHeader, c.sid)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if id := rec.Header().Get(mw.SessionHeader); id != "" {
		c.sid = id
	}
	return rec
}

func (c *testClient) form(method, path string, values url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return c.do(req)
}

func (c *testClient) json(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

type upload struct{ name, content string }

func multipartRequest(t *testing.T, path string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// uploadAPI posts files to the JSON API and returns each result.
func (c *testClient) uploadAPI(files ...upload) []UploadResponse {
	c.t.Helper()
	rec := c.do(multipartRequest(c.t, "/api/files", files...))
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Results []UploadResponse  `json:"results"`
		Summary core.BatchSummary `json:"summary"`
	}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Results
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, testConfig())
	rec := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing := WithHealthCheck("database", func(context.Context) error { return errors.New("refused") })
	c = newTestClient(t, testConfig(), failing)
	rec = c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"refused"}`, rec.Body.String())
}

func TestIndex(t *testing.T) {
	c := newTestClient(t, testConfig())
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Body.String(), "Smart Data Processor")
	assert.Contains(t, rec.Body.String(), "Thank you for using Smart Data Processor!")
	assert.NotEmpty(t, c.sid)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestUpload_HTMXReportsEachFile(t *testing.T) {
	c := newTestClient(t, testConfig())

	req := multipartRequest(t, "/upload",
		upload{"people.csv", peopleCSV},
		upload{"notes.txt", "hello"},
		upload{"broken.csv", "a\n1,2\n"},
	)
	req.Header.Set("HX-Request", "true")
	rec := c.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "people.csv</a> uploaded")
	assert.Contains(t, body, "notes.txt skipped: Skipped notes.txt: only .csv and .xlsx files are supported")
	assert.Contains(t, body, "Error processing broken.csv")
	assert.Contains(t, body, "FILE003")
	assert.Contains(t, body, `hx-swap-oob="beforeend:#files"`)
	assert.Contains(t, body, "File: people.csv")
	assert.NotContains(t, body, "<html")

	// the page now shows the file
	rec = c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "File: people.csv")
	assert.Contains(t, rec.Body.String(), "1 file(s) in this session")
}

func TestUpload_PlainPostRendersPage(t *testing.T) {
	c := newTestClient(t, testConfig())
	rec := c.do(multipartRequest(t, "/upload", upload{"people.csv", peopleCSV}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), "people.csv</a> uploaded")
}

func TestUpload_Errors(t *testing.T) {
	c := newTestClient(t, testConfig())

	rec := c.do(multipartRequest(t, "/upload"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE004")

	rec = c.do(multipartRequest(t, "/upload",
		upload{"1.csv", "a\n1\n"}, upload{"2.csv", "a\n1\n"}, upload{"3.csv", "a\n1\n"}, upload{"4.csv", "a\n1\n"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE006")
}

func TestUpload_OversizedFileFailsAlone(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	c := newTestClient(t, cfg)

	results := c.uploadAPI(
		upload{"big.csv", "a\n" + strings.Repeat("1\n", 40)},
		upload{"small.csv", "a\n1\n"},
	)
	require.Len(t, results, 2)
	assert.Equal(t, core.StatusFailed, results[0].Status)
	assert.Equal(t, "FILE001", results[0].Code)
	assert.Equal(t, core.StatusOK, results[1].Status)
	assert.Equal(t, 1, results[1].Rows)
}

func TestCleaningFlow(t *testing.T) {
	c := newTestClient(t, testConfig())
	id := c.uploadAPI(upload{"people.csv", peopleCSV})[0].FileID
	require.NotEmpty(t, id)

	// HTMX gets the panel back with a notice
	rec := c.form(http.MethodPost, "/files/"+id+"/dedupe", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicates removed! 1 row(s) dropped.")
	assert.Contains(t, rec.Body.String(), `id="file-`+id+`"`)

	// plain forms are redirected back to the page
	rec = c.form(http.MethodPost, "/files/"+id+"/fill", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#file-"+id, rec.Header().Get("Location"))

	rec = c.form(http.MethodPost, "/files/"+id+"/columns", url.Values{"columns": {"Age"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Keeping 1 of 2 columns.")

	rec = c.form(http.MethodPost, "/files/"+id+"/export", url.Values{"format": {"csv"}}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.MimeCSV, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "people.csv")
	assert.Equal(t, "Age\n20\n30\n40\n", rec.Body.String())

	// select all restores the dropped column
	rec = c.form(http.MethodPost, "/files/"+id+"/columns", url.Values{"all": {"on"}, "columns": {"Age"}}, true)
	assert.Contains(t, rec.Body.String(), "Keeping all columns.")

	rec = c.form(http.MethodPost, "/files/"+id+"/export", url.Values{"format": {"excel"}}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.MimeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "people.xlsx")

	rec = c.form(http.MethodPost, "/files/"+id+"/reset", nil, true)
	assert.Contains(t, rec.Body.String(), "Restored the file as uploaded.")
	assert.Contains(t, rec.Body.String(), "4 rows")
}

func TestChart(t *testing.T) {
	c := newTestClient(t, testConfig())
	res := c.uploadAPI(upload{"people.csv", peopleCSV}, upload{"scores.csv", "x,y\n1,2\n3,NA\n"})

	rec := c.do(httptest.NewRequest(http.MethodGet, "/files/"+res[0].FileID+"/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not enough numeric columns for visualization.")

	rec = c.do(httptest.NewRequest(http.MethodGet, "/files/"+res[1].FileID+"/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = c.do(httptest.NewRequest(http.MethodGet, "/api/files/"+res[1].FileID+"/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rows":2,"series":[{"name":"x","values":[1,3]},{"name":"y","values":[2,null]}],"min":0,"max":3}`, rec.Body.String())

	rec = c.do(httptest.NewRequest(http.MethodGet, "/api/files/"+res[0].FileID+"/chart", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "TBL002")
}

func TestUnknownFile(t *testing.T) {
	c := newTestClient(t, testConfig())

	rec := c.do(httptest.NewRequest(http.MethodGet, "/files/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SES001")

	rec = c.form(http.MethodPost, "/files/nope/dedupe", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "#results", rec.Header().Get("HX-Retarget"))
	assert.Contains(t, rec.Body.String(), `class="alert alert-error"`)

	rec = c.json(http.MethodGet, "/api/files/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SES001", body.Code)
}

func TestAPICommands(t *testing.T) {
	c := newTestClient(t, testConfig())
	id := c.uploadAPI(upload{"people.csv", peopleCSV})[0].FileID
	path := "/api/files/" + id + "/commands"

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing command", `{}`, http.StatusBadRequest, "REQ001"},
		{"unknown command", `{"command":"sort"}`, http.StatusBadRequest, "REQ001"},
		{"format needs a format", `{"command":"format"}`, http.StatusBadRequest, "REQ001"},
		{"bad format", `{"command":"format","format":"pdf"}`, http.StatusBadRequest, "REQ001"},
		{"blank column name", `{"command":"select","columns":[""]}`, http.StatusBadRequest, "REQ001"},
		{"unknown column", `{"command":"select","columns":["Salary"]}`, http.StatusBadRequest, "TBL001"},
		{"malformed json", `{"command":`, http.StatusBadRequest, "REQ001"},
		{"dedupe", `{"command":"dedupe"}`, http.StatusOK, ""},
		{"upper case command", `{"command":"FILL"}`, http.StatusOK, ""},
		{"format", `{"command":"format","format":"xlsx"}`, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.json(http.MethodPost, path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr == "" {
				return
			}
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantErr, body.Code)
		})
	}

	rec := c.json(http.MethodPost, path, `{"command":"select","columns":["Name"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.OpSelect, resp.Operation.Kind)
	assert.Equal(t, []string{"Name"}, resp.File.PreviewHeader)
	assert.Equal(t, 3, resp.File.Rows)
	assert.True(t, resp.File.Cleaned)
	assert.Equal(t, core.FormatExcel, resp.File.Format)

	// export without a body uses the remembered format
	rec = c.json(http.MethodPost, "/api/files/"+id+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.MimeXLSX, rec.Header().Get("Content-Type"))

	rec = c.json(http.MethodPost, "/api/files/"+id+"/export", `{"format":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Name\nA\nB\nC\n", rec.Body.String())
}

func TestAPIFiles(t *testing.T) {
	c := newTestClient(t, testConfig())
	res := c.uploadAPI(upload{"a.csv", "x\n1\n"}, upload{"b.csv", "y\n2\n"})

	rec := c.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		SessionID string          `json:"sessionId"`
		Files     []core.FileView `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, c.sid, list.SessionID)
	require.Len(t, list.Files, 2)
	assert.Equal(t, "a.csv", list.Files[0].Name)

	rec = c.do(httptest.NewRequest(http.MethodDelete, "/api/files/"+res[0].FileID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.do(httptest.NewRequest(http.MethodGet, "/api/files/"+res[0].FileID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_concurrent":2`)

	// sessions are isolated
	other := &testClient{t: t, h: c.h}
	rec = other.do(httptest.NewRequest(http.MethodGet, "/api/files/"+res[1].FileID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFile_HTMX(t *testing.T) {
	c := newTestClient(t, testConfig())
	id := c.uploadAPI(upload{"a.csv", "x\n1\n"})[0].FileID

	req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
	req.Header.Set("HX-Request", "true")
	rec := c.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	c := newTestClient(t, cfg)

	rec := c.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = c.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the browser UI does not need a key
	rec = c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	c := newTestClient(t, cfg)

	assert.Equal(t, http.StatusOK, c.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, c.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// health checks are not limited
	assert.Equal(t, http.StatusOK, c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	c := newTestClient(t, testConfig(), WithMetrics(m))
	c.uploadAPI(upload{"a.csv", "x\n1\n"})

	rec := c.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dataprep_http_requests_total{method="POST",route="/api/files",status="200"} 1`)
}
