// Package metrics exposes Prometheus collectors for the upload pipeline and
// the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/dataprep/internal/core"
)

const namespace = "dataprep"

// Metrics holds every collector on its own registry so tests can create
// independent instances.
type Metrics struct {
	registry *prometheus.Registry

	filesIngested   *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	operations      *prometheus.CounterVec
	operationChange *prometheus.CounterVec
	exports         *prometheus.CounterVec
	exportBytes     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Uploaded files by extension and outcome (ok, skipped, failed).",
		}, []string{"extension", "outcome"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time to parse one uploaded file.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"extension"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations applied to files by kind.",
		}, []string{"kind"}),
		operationChange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_changes_total",
			Help:      "Rows removed or cells filled by operation kind.",
		}, []string{"kind"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exported files by format.",
		}, []string{"format"}),
		exportBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_size_bytes",
			Help:      "Size of exported files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesIngested,
		m.ingestDuration,
		m.operations,
		m.operationChange,
		m.exports,
		m.exportBytes,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterLimiter exposes the ingest limiter state as gauges.
func (m *Metrics) RegisterLimiter(status func() core.IngestLimiterStatus) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingests_active",
			Help:      "Uploads currently being parsed.",
		}, func() float64 { return float64(status().Active) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingests_capacity",
			Help:      "Maximum uploads parsed at once.",
		}, func() float64 { return float64(status().MaxConcurrent) }),
	)
}

// RegisterSessions exposes the live session count as a gauge.
func (m *Metrics) RegisterSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions holding uploaded files.",
	}, func() float64 { return float64(count()) }))
}

// FileIngested implements core.Observer.
func (m *Metrics) FileIngested(extension, outcome string, elapsed time.Duration) {
	if extension == "" {
		extension = "none"
	}
	m.filesIngested.WithLabelValues(extension, outcome).Inc()
	if outcome == string(core.StatusOK) {
		m.ingestDuration.WithLabelValues(extension).Observe(elapsed.Seconds())
	}
}

// OperationApplied implements core.Observer.
func (m *Metrics) OperationApplied(kind core.OperationKind, changed int) {
	m.operations.WithLabelValues(string(kind)).Inc()
	if changed > 0 {
		m.operationChange.WithLabelValues(string(kind)).Add(float64(changed))
	}
}

// FileExported implements core.Observer.
func (m *Metrics) FileExported(format core.Format, size int) {
	m.exports.WithLabelValues(string(format)).Inc()
	m.exportBytes.WithLabelValues(string(format)).Observe(float64(size))
}

// Middleware records request counts and latency keyed by chi route pattern,
// which keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

var _ core.Observer = (*Metrics)(nil)
