package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

const namespace = "sunabot"

// HTTPServerMetrics backs the API process: request metrics, consultation
// outcomes and the generation breaker state.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rateLimited     prometheus.Counter

	consultationsTotal  *prometheus.CounterVec
	generationTotal     *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	validationRejected  prometheus.Counter
	circuitBreakerState *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: serviceLabel,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: serviceLabel,
		},
	)
	rateLimited := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "rate_limited_total",
			Help:        "Requests rejected by the rate limiter.",
			ConstLabels: serviceLabel,
		},
	)
	consultationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "consultation",
			Name:        "total",
			Help:        "Answered consultations by processing type, category and origin.",
			ConstLabels: serviceLabel,
		},
		[]string{"processing_type", "category", "ai_generated"},
	)
	generationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "generation",
			Name:        "requests_total",
			Help:        "Backend generation calls by outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"backend", "outcome"},
	)
	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "generation",
			Name:        "duration_seconds",
			Help:        "Backend generation latency in seconds.",
			Buckets:     []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			ConstLabels: serviceLabel,
		},
		[]string{"backend"},
	)
	validationRejected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "consultation",
			Name:        "validation_rejected_total",
			Help:        "Pipeline requests rejected by input validation.",
			ConstLabels: serviceLabel,
		},
	)
	circuitBreakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "circuit_breaker_state",
			Help:        "Breaker state per operation: 0 closed, 1 half-open, 2 open.",
			ConstLabels: serviceLabel,
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimited,
		consultationsTotal,
		generationTotal,
		generationDuration,
		validationRejected,
		circuitBreakerState,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		rateLimited:         rateLimited,
		consultationsTotal:  consultationsTotal,
		generationTotal:     generationTotal,
		generationDuration:  generationDuration,
		validationRejected:  validationRejected,
		circuitBreakerState: circuitBreakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

var knownPaths = map[string]struct{}{
	"/healthz":                 {},
	"/metrics":                 {},
	"/v1/categorias":           {},
	"/v1/consultas":            {},
	"/v1/consultas/pipeline":   {},
	"/v1/consultas/continuar":  {},
	"/v1/consultas/clasificar": {},
}

// normalizePath collapses unknown paths into one label value.
func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *HTTPServerMetrics) RecordConsultation(processingType string, category domain.Category, aiGenerated bool) {
	if processingType == "" {
		processingType = "unknown"
	}
	m.consultationsTotal.WithLabelValues(processingType, category.String(), strconv.FormatBool(aiGenerated)).Inc()
}

func (m *HTTPServerMetrics) RecordGeneration(backend, outcome string, duration time.Duration) {
	if backend == "" {
		backend = "unknown"
	}
	m.generationTotal.WithLabelValues(backend, outcome).Inc()
	m.generationDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordValidationRejected() {
	m.validationRejected.Inc()
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *HTTPServerMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(operation).Set(breakerStateValue(to))
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
