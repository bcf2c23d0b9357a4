package inspector

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.insp.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, u string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(u, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, u string) *http.Response {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTP_HealthAndHeaders(t *testing.T) {
	srv := serve(t, newFixture(t, ""))

	resp := get(t, srv.URL+"/health")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	assert.Equal(t, "ok", decode(t, resp)["status"])

	resp = get(t, srv.URL+"/")
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `<script src="/static/app.js">`)

	resp = get(t, srv.URL+"/static/app.js")
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHTTP_SnapshotEmpty(t *testing.T) {
	srv := serve(t, newFixture(t, ""))

	resp := get(t, srv.URL+"/api/snapshot")
	assert.Equal(t, 404, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "No font data to export. Please inspect an element first.", out["error"])
	assert.Equal(t, "no_snapshot", out["kind"])
	assert.NotEmpty(t, out["trace_id"])
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), out["trace_id"])
}

func TestHTTP_ClickAndExport(t *testing.T) {
	srv := serve(t, newFixture(t, ""))

	resp := postJSON(t, srv.URL+"/api/click", map[string]string{"selector": "h1"})
	require.Equal(t, 200, resp.StatusCode)
	out := decode(t, resp)
	snap := out["snapshot"].(map[string]any)
	assert.Equal(t, "h1", snap["tagName"])
	assert.Equal(t, "32px", snap["fontSize"])
	assert.Contains(t, out["panel"].(map[string]any)["html"], "font-info")

	resp = get(t, srv.URL+"/api/export/json")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `attachment; filename="fontpeek-2026-10-18.json"`, resp.Header.Get("Content-Disposition"))

	resp = postJSON(t, srv.URL+"/api/export/pdf", nil)
	assert.Equal(t, 200, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/copy", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "CSS copied to clipboard!", decode(t, resp)["message"])

	resp = get(t, srv.URL+"/api/history?limit=5")
	require.Equal(t, 200, resp.StatusCode)
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Len(t, entries, 1)
}

func TestHTTP_LoadErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer upstream.Close()
	srv := serve(t, newFixture(t, upstream.URL))

	resp := postJSON(t, srv.URL+"/api/load/url", map[string]string{"url": "ftp://nope"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Please enter a valid URL", decode(t, resp)["error"])

	resp = postJSON(t, srv.URL+"/api/load/url", map[string]string{"url": "https://example.com"})
	assert.Equal(t, 502, resp.StatusCode)

	resp = get(t, srv.URL+"/api/status")
	out := decode(t, resp)
	assert.Equal(t, "error", out["status"].(map[string]any)["kind"])
}

func TestHTTP_LoadFile(t *testing.T) {
	srv := serve(t, newFixture(t, ""))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "doc.html")
	require.NoError(t, err)
	fw.Write([]byte(`<html><body><code>x := 1</code></body></html>`))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/load/file", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/click", map[string]string{"selector": "code"})
	require.Equal(t, 200, resp.StatusCode)
	snap := decode(t, resp)["snapshot"].(map[string]any)
	assert.Equal(t, "monospace", snap["fontFamily"])
	assert.Equal(t, "local", snap["sourceLocation"])

	resp = postJSON(t, srv.URL+"/api/load/file", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHTTP_Theme(t *testing.T) {
	srv := serve(t, newFixture(t, ""))

	out := decode(t, get(t, srv.URL+"/api/theme"))
	assert.Equal(t, "light", out["theme"])
	assert.Equal(t, "fa-moon", out["icon"])

	out = decode(t, postJSON(t, srv.URL+"/api/theme/toggle", nil))
	assert.Equal(t, "dark", out["theme"])
	assert.Equal(t, "fa-sun", out["icon"])
}

func TestHTTP_Proxy(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>proxied</body></html>")
	}))
	defer page.Close()
	srv := serve(t, newFixture(t, ""))

	resp := get(t, srv.URL+"/proxy/get")
	assert.Equal(t, 400, resp.StatusCode)

	resp = get(t, srv.URL+"/proxy/get?url="+url.QueryEscape(page.URL+"/x"))
	require.Equal(t, 200, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "<html><body>proxied</body></html>", out["contents"])
	assert.Equal(t, float64(200), out["status"].(map[string]any)["http_code"])

	resp = get(t, srv.URL+"/proxy/get?url="+url.QueryEscape("http://127.0.0.1:1/unreachable"))
	assert.Equal(t, 502, resp.StatusCode)
}

func TestHTTP_ProxyServesLoader(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><b>bold</b></body></html>`)
	}))
	defer page.Close()

	// The loader talks to the inspector's own /proxy/get.
	mux := http.NewServeMux()
	self := httptest.NewServer(mux)
	defer self.Close()
	f := newFixture(t, self.URL+"/proxy/get")
	mux.Handle("/", f.insp.Handler())

	resp := postJSON(t, self.URL+"/api/load/url", map[string]string{"url": page.URL})
	require.Equal(t, 200, resp.StatusCode)

	resp = postJSON(t, self.URL+"/api/click", map[string]string{"selector": "b"})
	require.Equal(t, 200, resp.StatusCode)
	snap := decode(t, resp)["snapshot"].(map[string]any)
	assert.Equal(t, "700", snap["fontWeight"])
	assert.Equal(t, page.URL, snap["sourceLocation"])
}
