package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests and the
// advice workflow.
type HTTPCollector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	workflowRuns    *prometheus.CounterVec
	workflowStage   *prometheus.HistogramVec
}

// NewHTTPCollector constructs a collector with default histograms/counters.
func NewHTTPCollector() (*HTTPCollector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portico",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portico",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	workflowRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portico",
		Subsystem: "workflow",
		Name:      "runs_total",
		Help:      "Total advice workflow runs by outcome.",
	}, []string{"outcome"})

	workflowStage := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portico",
		Subsystem: "workflow",
		Name:      "stage_duration_seconds",
		Help:      "Latency distribution per workflow stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, workflowRuns, workflowStage} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &HTTPCollector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		workflowRuns:    workflowRuns,
		workflowStage:   workflowStage,
	}, nil
}

// RecordWorkflowRun counts one completed workflow run. outcome is "ok" or
// "fallback".
func (c *HTTPCollector) RecordWorkflowRun(outcome string) {
	c.workflowRuns.WithLabelValues(outcome).Inc()
}

// RecordWorkflowStage records the latency of one workflow stage.
func (c *HTTPCollector) RecordWorkflowStage(stage string, duration time.Duration) {
	c.workflowStage.WithLabelValues(stage).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *HTTPCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
