package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/coursegen/internal/api/shared"
	"github.com/phrazzld/coursegen/internal/platform/logger"
)

// TraceHeader carries the request trace ID back to the client.
const TraceHeader = "X-Trace-Id"

// NewTraceMiddleware returns middleware that gives every request a trace ID
// and a request-scoped logger derived from base. It should run before any
// handler that logs.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			log := base.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			ctx = logger.WithContext(ctx, log)

			w.Header().Set(TraceHeader, shared.GetTraceID(ctx))
			log.DebugContext(ctx, "request started", slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
