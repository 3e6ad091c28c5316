package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/metrics"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsInFlight.Inc()
		defer metrics.RequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		metrics.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode/100)+"xx").Inc()
	})
}
