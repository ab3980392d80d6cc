package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	questionsTotal    *prometheus.CounterVec
	questionsDuration *prometheus.HistogramVec
	questionsInFlight prometheus.Gauge
	eventLag          prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexiscan",
			Subsystem: "worker",
			Name:      "questions_generated_total",
			Help:      "Total question pre-generation attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	questionsDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexiscan",
			Subsystem: "worker",
			Name:      "questions_duration_seconds",
			Help:      "Question pre-generation duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "outcome"},
	)
	questionsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexiscan",
			Subsystem: "worker",
			Name:      "questions_in_flight",
			Help:      "Agreements currently in question pre-generation.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lexiscan",
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between event publication and worker pickup.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		questionsTotal,
		questionsDuration,
		questionsInFlight,
		eventLag,
	)

	return &WorkerMetrics{
		registry:          registry,
		questionsTotal:    questionsTotal,
		questionsDuration: questionsDuration,
		questionsInFlight: questionsInFlight,
		eventLag:          eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartGeneration() {
	m.questionsInFlight.Inc()
}

func (m *WorkerMetrics) FinishGeneration(service string, err error, duration time.Duration) {
	m.questionsInFlight.Dec()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.questionsTotal.WithLabelValues(service, outcome).Inc()
	m.questionsDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(publishedAt time.Time) {
	if publishedAt.IsZero() {
		return
	}
	lag := time.Since(publishedAt)
	if lag < 0 {
		lag = 0
	}
	m.eventLag.Observe(lag.Seconds())
}
