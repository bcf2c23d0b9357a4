package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/fontpeek/inspector/internal/idgen"
)

var traceIDs = idgen.Prefixed("tr_", idgen.UUIDv7())

// TraceID assigns a trace ID to each request and injects it into the
// context, the response headers and a per-request structured logger.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := traceIDs()
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		ctx := context.WithValue(r.Context(), TraceIDKey, traceID)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
