package shield

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStack(t *testing.T) {
	r := chi.NewRouter()
	for _, mw := range DefaultStack(16) {
		r.Use(mw)
	}
	var traceID string
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r.Context())
		assert.NotNil(t, GetLogger(r.Context()))
		w.Write([]byte("pong"))
	})
	r.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	require.True(t, strings.HasPrefix(traceID, "tr_"))
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, rec.Code)
}
