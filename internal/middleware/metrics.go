package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"brandstudio/pkg/metrics"
)

// Metrics records request counts and latency labelled by chi route pattern,
// so ids in the path do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.HTTPRequest(r.Method, route, rw.status, time.Since(start))
	})
}
