package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/page", http.StatusFound)
			return
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent: got %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<h1>Hello</h1>"))
	}))
	defer srv.Close()

	f := New(WithUserAgent("test-agent"))
	res, err := f.Fetch(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "<h1>Hello</h1>" {
		t.Errorf("body: got %q", res.Body)
	}
	if res.StatusCode != 200 {
		t.Errorf("status: got %d", res.StatusCode)
	}
	if !strings.HasSuffix(res.FinalURL, "/page") {
		t.Errorf("final url: got %q", res.FinalURL)
	}
	if !strings.HasPrefix(res.ContentType, "text/html") {
		t.Errorf("content type: got %q", res.ContentType)
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chunk := strings.Repeat("x", 1<<20)
		for i := 0; i < 12; i++ {
			w.Write([]byte(chunk))
		}
	}))
	defer srv.Close()

	res, err := New().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Body) != MaxBody {
		t.Errorf("body size: got %d, want %d", len(res.Body), MaxBody)
	}
}

func TestFetch_BadURL(t *testing.T) {
	if _, err := New().Fetch(context.Background(), "http://[::1"); err == nil {
		t.Error("expected error for malformed URL")
	}
}
