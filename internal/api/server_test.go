package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoulee21/bedit/internal/config"
	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/session"
)

func newTestServer(t *testing.T, apiKey string) (*Server, *session.Store) {
	t.Helper()
	cfg := config.Config{APIKey: apiKey, MaxUploadBytes: 4 << 10}
	reg := format.NewRegistry(format.Options{MaxInputBytes: cfg.MaxUploadBytes})
	store := session.NewStore(reg, time.Hour, nil)
	return NewServer(store, nil, cfg), store
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	return do(t, h, http.MethodPost, target, strings.NewReader(body), "application/json")
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func createBlank(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var snap struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap.ID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	rec := do(t, srv, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	rec := do(t, srv, http.MethodPost, "/api/sessions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv, store := newTestServer(t, "")
	id := createBlank(t, srv)
	assert.Equal(t, 1, store.Len())

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		ID       string          `json:"id"`
		Revision int             `json:"revision"`
		Document json.RawMessage `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, id, snap.ID)
	assert.JSONEq(t, `[{"type":"paragraph","children":[{"text":""}]}]`, string(snap.Document))

	rec = do(t, srv, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestUploadAndExport(t *testing.T) {
	srv, _ := newTestServer(t, "")
	body, ct := multipartBody(t, "../notes.md", "# Title\n\nSome **bold** text\n")
	rec := do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap struct {
		ID       string `json:"id"`
		Metadata struct {
			Title  string `json:"title"`
			Format string `json:"format"`
		} `json:"metadata"`
		Outline []struct {
			Text  string `json:"text"`
			Level int    `json:"level"`
		} `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "Title", snap.Metadata.Title)
	assert.Equal(t, "md", snap.Metadata.Format)
	require.Len(t, snap.Outline, 1)
	assert.Equal(t, 1, snap.Outline[0].Level)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/export?format=txt", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Title.txt"`)
	assert.Equal(t, "Title\n\nSome bold text", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/export?format=rtf", nil, "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body, ct := multipartBody(t, "notes.rtf", "x")
	rec := do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = multipartBody(t, "bad.txt", "a\xffb")
	rec = do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body, ct = multipartBody(t, "big.txt", strings.Repeat("a", 16<<10))
	rec = do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReplaceDocument(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := createBlank(t, srv)

	body, ct := multipartBody(t, "data.csv", "a,b\n1,2\n")
	rec := do(t, srv, http.MethodPut, "/api/sessions/"+id+"/document", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"revision":1`)
	assert.Contains(t, rec.Body.String(), `"type":"table"`)

	rec = do(t, srv, http.MethodPut, "/api/sessions/"+id+"/document", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNodeEdits(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := createBlank(t, srv)
	base := "/api/sessions/" + id

	rec := postJSON(t, srv, base+"/nodes/insert",
		`{"path":"1","nodes":[{"type":"heading-1","children":[{"text":"Intro"}]},{"type":"paragraph","children":[{"text":"see docs"}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp editResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Revision)
	assert.Equal(t, 2, resp.Change.Count)
	require.Len(t, resp.Outline, 1)
	assert.Equal(t, "Intro", resp.Outline[0].Text)
	assert.Equal(t, 3, resp.Counts.Words)

	rec = postJSON(t, srv, base+"/nodes/link",
		`{"url":"https://example.com","anchor":{"path":"2.0","offset":4},"focus":{"path":"2.0","offset":8}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"op":"wrap"`)

	rec = postJSON(t, srv, base+"/nodes/properties", `{"path":"1","patch":{"align":"center"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, base+"/export?format=json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"align":"center"`)
	assert.Contains(t, rec.Body.String(), `"url":"https://example.com"`)

	rec = postJSON(t, srv, base+"/nodes/remove", `{"path":"0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, base+"/outline", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":[0]`)
}

func TestNodeEditErrors(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := createBlank(t, srv)
	base := "/api/sessions/" + id

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"malformed body", "/nodes/remove", `{`, http.StatusBadRequest},
		{"bad path", "/nodes/remove", `{"path":"x.1"}`, http.StatusBadRequest},
		{"path out of range", "/nodes/remove", `{"path":"7"}`, http.StatusBadRequest},
		{"missing nodes", "/nodes/insert", `{"path":"0"}`, http.StatusBadRequest},
		{"table inside paragraph", "/nodes/insert", `{"path":"0.0","nodes":[{"type":"table","children":[]}]}`, http.StatusBadRequest},
		{"childless paragraph", "/nodes/insert", `{"path":"0","nodes":[{"type":"paragraph","children":[]}]}`, http.StatusBadRequest},
		{"missing url", "/nodes/link", `{"anchor":{"path":"0.0"}}`, http.StatusBadRequest},
		{"unknown session", "", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := base + tt.target
			if tt.target == "" {
				target = "/api/sessions/missing/nodes/remove"
			}
			rec := postJSON(t, srv, target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTableEdits(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := createBlank(t, srv)
	base := "/api/sessions/" + id

	rec := postJSON(t, srv, base+"/tables", `{"path":"1","rows":2,"cols":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, srv, base+"/tables/insert-row", `{"path":"1.0.0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = postJSON(t, srv, base+"/tables/insert-column", `{"path":"1.0.0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, srv, base+"/tables/merge",
		`{"anchor":{"path":"1.0.0.0.0"},"focus":{"path":"1.1.1.0.0"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, srv, base+"/tables/merge",
		`{"anchor":{"path":"1.0.0.0.0"},"focus":{"path":"1.2.2.0.0"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Rows and cells only change through the table endpoints.
	rec = postJSON(t, srv, base+"/nodes/remove", `{"path":"1.0.1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "covered cell")
	rec = postJSON(t, srv, base+"/nodes/insert",
		`{"path":"1.1","nodes":[{"type":"table-row","children":[{"type":"table-cell","children":[{"type":"paragraph","children":[{"text":""}]}]}]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "short row")

	rec = postJSON(t, srv, base+"/tables/split", `{"path":"1.0.0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, srv, base+"/tables/split", `{"path":"1.0.0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = postJSON(t, srv, base+"/tables/rotate", `{"path":"1.0.0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, srv, base+"/tables", `{"path":"1","rows":0,"cols":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionMetrics(t *testing.T) {
	srv, _ := newTestServer(t, "")
	body, ct := multipartBody(t, "a.txt", "Hello   world\n\nfoo")
	rec := do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/metrics?path=1.0&offset=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"counts":{"characters":18,"words":3,"lines":2},"cursor":{"line":2,"column":3}}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+snap.ID+"/metrics?path=1.0&offset=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := createBlank(t, srv)
	postJSON(t, srv, "/api/sessions/"+id+"/nodes/remove", `{"path":"9"}`)
	do(t, srv, http.MethodGet, "/api/sessions/"+id+"/export?format=md", nil, "")

	rec := do(t, srv, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `bedit_edits_total{op="remove",result="error"} 1`)
	assert.Contains(t, out, `bedit_conversions_total{direction="export",format="md",result="ok"} 1`)
	assert.Contains(t, out, "bedit_sessions 1")
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.md":          "report.md",
		"../../etc/passwd":   "passwd",
		`C:\docs\notes.docx`: "notes.docx",
		"":                   "unnamed",
		"a..b.txt":           "a_b.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
