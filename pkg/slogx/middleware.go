package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lexorahq/provision/pkg/idx"
)

// HTTPMiddleware logs requests and attaches a contextual logger into request
// context. Every request gets a correlation id, either the caller's
// X-Correlation-ID header or a freshly minted ULID.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			corrID, err := idx.Parse(r.Header.Get("X-Correlation-ID"))
			if err != nil {
				corrID = idx.New()
			}

			logger := base.With(
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			// Attach to context for downstream use
			ctx := WithContext(r.Context(), logger)
			ctx = WithCorrelationID(ctx, corrID)
			r = r.WithContext(ctx)

			// Echo the correlation id so callers can reference it
			w.Header().Set("X-Correlation-ID", corrID.String())

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Milliseconds()
			FromContext(ctx).Info("http_request",
				"status", rw.status,
				"duration_ms", duration,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
