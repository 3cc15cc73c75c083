// internal/handler/metrics.go
package handler

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reqCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Total API requests",
	}, []string{"path", "method"})

	reqLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "api_latency_seconds",
		Help: "API latency",
	}, []string{"path", "method"})
)

// Metrics counts requests and observes latency per path and method.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		reqCount.WithLabelValues(r.URL.Path, r.Method).Inc()
		reqLatency.WithLabelValues(r.URL.Path, r.Method).Observe(time.Since(start).Seconds())
	})
}
