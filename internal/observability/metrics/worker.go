package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

// WorkerMetrics backs the consultation event consumer.
type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	handleDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	eventLag       prometheus.Histogram
	latency        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "consultation_events_total",
			Help:        "Consumed consultation events by category, processing type and degradation.",
			ConstLabels: serviceLabel,
		},
		[]string{"category", "processing_type", "degraded"},
	)
	handleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "event_handle_duration_seconds",
			Help:        "Event handling duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "events_in_flight",
			Help:        "Number of events being handled.",
			ConstLabels: serviceLabel,
		},
	)
	eventLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "event_lag_seconds",
			Help:        "Delay between the consultation finishing and the worker receiving its event.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			ConstLabels: serviceLabel,
		},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "consultation_latency_seconds",
			Help:        "End-to-end consultation latency reported by the API.",
			Buckets:     []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			ConstLabels: serviceLabel,
		},
		[]string{"processing_type"},
	)

	registry.MustRegister(eventsTotal, handleDuration, inFlight, eventLag, latency)

	return &WorkerMetrics{
		registry:       registry,
		eventsTotal:    eventsTotal,
		handleDuration: handleDuration,
		inFlight:       inFlight,
		eventLag:       eventLag,
		latency:        latency,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.inFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(event domain.ConsultationEvent, duration time.Duration, err error) {
	m.inFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.handleDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.eventsTotal.WithLabelValues(event.Category.String(), event.ProcessingType, strconv.FormatBool(event.Degraded)).Inc()
	if event.LatencyMillis >= 0 {
		m.latency.WithLabelValues(event.ProcessingType).Observe(float64(event.LatencyMillis) / 1000)
	}
}

func (m *WorkerMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.Observe(lag.Seconds())
}
