package edge

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
}

func newMetrics(version string) *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Help:        "Duration of HTTP requests in seconds.",
		ConstLabels: prometheus.Labels{"app": "cramkle", "version": version},
		Buckets:     []float64{0.003, 0.03, 0.1, 0.3, 1.5, 10},
	}, []string{"method", "path", "status_code"})
	registry.MustRegister(duration)

	return &metrics{registry: registry, duration: duration}
}

func (m *metrics) observe(method, path string, status int, elapsed time.Duration) {
	m.duration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
