package middleware

import (
	"net/http"
	"time"
)

// Logging logs every request at debug level, and server errors as warnings.
func (h *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		h.log.Debug(r.Context(), "request started", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		next.ServeHTTP(rw, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rw.statusCode >= http.StatusInternalServerError {
			h.log.Warn(r.Context(), "request completed", args...)
			return
		}
		h.log.Debug(r.Context(), "request completed", args...)
	})
}
