package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/metrics"
)

// MetricsMiddleware records request counts and latency.
// Path segments that look like ids are collapsed to keep label cardinality
// bounded.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lw := &logWriter{
				ResponseWriter: w,
				data:           logData{responseStatus: http.StatusOK},
			}

			next.ServeHTTP(lw, r)

			path := normalizePath(r.URL.Path)

			metrics.HTTPRequestsTotal.
				WithLabelValues(r.Method, path, strconv.Itoa(lw.data.responseStatus)).
				Inc()
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, path).
				Observe(time.Since(start).Seconds())
		})
	}
}

func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if _, err := uuid.Parse(segment); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
