// Package metrics exposes Prometheus collectors for HTTP traffic, logins,
// the guest session store and registered image totals.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/appinfo"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
)

const namespace = "annotator"

// Metrics owns a private registry so several servers can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	authAttempts    *prometheus.CounterVec
}

// New registers every collector. store may be nil when no guest store runs.
func New(store *guest.Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		// Labels: method, route (the ServeMux pattern), status
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),
		// Labels: kind (password, guest), result (success, invalid_credentials, ...)
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of login attempts",
			},
			[]string{"kind", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.responseSize,
		m.authAttempts,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "images_registered",
			Help:      "Active images stored for registered users",
		}, func() float64 { return float64(appinfo.TotalAssetsCount.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "images_registered_bytes",
			Help:      "Total size of active registered images",
		}, func() float64 { return float64(appinfo.TotalAssetsSize.Load()) }),
	)

	if store != nil {
		m.registerGuest(store)
	}
	return m
}

func (m *Metrics) registerGuest(store *guest.Store) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guest",
			Name:      "sessions",
			Help:      "Guest sessions currently held in memory",
		}, func() float64 { return float64(store.Stats().Sessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guest",
			Name:      "images",
			Help:      "Images held across all guest sessions",
		}, func() float64 { return float64(store.Stats().Images) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guest",
			Name:      "bytes",
			Help:      "Inline image bytes held across all guest sessions",
		}, func() float64 { return float64(store.Stats().Bytes) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guest",
			Name:      "sessions_reaped_total",
			Help:      "Guest sessions reclaimed by the reaper",
		}, func() float64 { return float64(store.Stats().Reaped) }),
	)
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, route string, status, size int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.responseSize.WithLabelValues(method, route).Observe(float64(size))
}

func (m *Metrics) AuthAttempt(kind, result string) {
	m.authAttempts.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
