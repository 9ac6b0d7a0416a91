package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// sensitiveParams are form/query keys never written to logs. Webhook and
// card payloads run through here, so the filter errs on the side of
// dropping too much.
var sensitiveParams = map[string]bool{
	"hash":        true,
	"cvv":         true,
	"card_number": true,
	"password":    true,
	"secret":      true,
	"token":       true,
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", filteredQuery(r),
				"status", ww.statusCode,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func filteredQuery(r *http.Request) string {
	query := r.URL.Query()
	for key := range query {
		if sensitiveParams[key] {
			query.Set(key, "[FILTERED]")
		}
	}
	return query.Encode()
}
