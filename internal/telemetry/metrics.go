// Package telemetry exposes Prometheus metrics for the pack service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeIncluded = "included"
	OutcomeExcluded = "excluded"
	OutcomeSkipped  = "skipped"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	PackEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pack_evaluations_total",
			Help: "Pack rule evaluations by outcome",
		},
		[]string{"outcome"},
	)
	SnapshotPacks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_packs",
		Help: "Number of packs currently in the in-memory snapshot",
	})
	CatalogueReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogue_reloads_total",
			Help: "Pack file reloads triggered by external edits",
		},
		[]string{"result"},
	)
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalogue_stream_clients",
		Help: "Open server-sent event connections on the catalogue stream",
	})
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Catalogue webhook deliveries by result",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, PackEvaluations, SnapshotPacks, CatalogueReloads, StreamClients, WebhookDeliveries)
	})
}

// RecordVerdict counts one evaluation.
func RecordVerdict(included bool) {
	if included {
		PackEvaluations.WithLabelValues(OutcomeIncluded).Inc()
		return
	}
	PackEvaluations.WithLabelValues(OutcomeExcluded).Inc()
}

// RecordSelection counts the outcomes of a selection run.
func RecordSelection(included, excluded, skipped int) {
	PackEvaluations.WithLabelValues(OutcomeIncluded).Add(float64(included))
	PackEvaluations.WithLabelValues(OutcomeExcluded).Add(float64(excluded))
	PackEvaluations.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		// The pattern is only complete once routing has run.
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer's Flush.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
