package middleware

import (
	"net/http"
	"time"

	"github.com/navatransportes/nava-fleet/pkg/metrics"
)

// Metrics records HTTP metrics labelled by the matched route pattern, so path ids do not blow up cardinality.
func (m *Middleware) Metrics(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			inFlight := metrics.HttpRequestsInFlight.WithLabelValues(serviceName)
			inFlight.Inc()
			defer inFlight.Dec()

			rw := newResponseWriter(w)

			// the mux sets Pattern on this request value, so Metrics must wrap the mux directly
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPMetrics(serviceName, r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
