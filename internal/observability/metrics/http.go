package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineRunsTotal *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	chatQueriesTotal  *prometheus.CounterVec
	chatQueryDuration *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexiscan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexiscan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexiscan",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pipelineRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexiscan",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total document pipeline runs by outcome.",
		},
		[]string{"service", "mode", "outcome"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexiscan",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"service", "mode", "outcome"},
	)
	chatQueriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexiscan",
			Subsystem: "chat",
			Name:      "queries_total",
			Help:      "Total chat queries by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatQueryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexiscan",
			Subsystem: "chat",
			Name:      "query_duration_seconds",
			Help:      "Chat query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineRunsTotal,
		pipelineDuration,
		chatQueriesTotal,
		chatQueryDuration,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		pipelineRunsTotal: pipelineRunsTotal,
		pipelineDuration:  pipelineDuration,
		chatQueriesTotal:  chatQueriesTotal,
		chatQueryDuration: chatQueryDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &metricsRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource ids so the label set stays bounded.
func normalizePath(path string) string {
	for _, prefix := range []string{
		"/agreement/analysis/",
		"/agreement/questions/",
		"/agreement/report/",
		"/agreement/rulebook/",
		"/agreement/export/",
		"/chat/messages/",
		"/docUpload/preview/",
		"/docUpload/",
	} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{agreement_id}"
		}
	}
	return path
}

func (m *HTTPServerMetrics) RecordPipelineRun(service, mode string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if mode == "" {
		mode = "unknown"
	}
	m.pipelineRunsTotal.WithLabelValues(service, mode, outcome).Inc()
	m.pipelineDuration.WithLabelValues(service, mode, outcome).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordChatQuery(service string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.chatQueriesTotal.WithLabelValues(service, outcome).Inc()
	m.chatQueryDuration.WithLabelValues(service).Observe(duration.Seconds())
}

type metricsRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
