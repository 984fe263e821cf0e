package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Name:      "transitions_total",
			Help:      "Claim status transitions attempted, by source status, trigger and outcome.",
		},
		[]string{"from", "trigger", "result"},
	)

	observerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Name:      "observer_failures_total",
			Help:      "Post-commit observer failures (audit, notification) that were suppressed.",
		},
		[]string{"event_type"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "attachments",
			Name:      "uploads_total",
			Help:      "Attachment uploads, by result.",
		},
		[]string{"result"},
	)

	uploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "attachments",
			Name:      "upload_bytes",
			Help:      "Size of accepted attachment uploads.",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 11), // 1KiB to 1MiB
		},
	)

	janitorRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "janitor",
			Name:      "files_total",
			Help:      "Orphan files handled by the janitor, by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		transitions,
		observerFailures,
		uploads,
		uploadBytes,
		janitorRemoved,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Recorder adapts the package collectors to the service-layer metrics interface
type Recorder struct{}

// NewRecorder returns a Recorder backed by Registry
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordTransition counts an attempted status change
func (Recorder) RecordTransition(from, trigger string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	transitions.WithLabelValues(from, trigger, result).Inc()
}

// RecordObserverFailure counts a suppressed post-commit failure
func (Recorder) RecordObserverFailure(eventType string) {
	observerFailures.WithLabelValues(eventType).Inc()
}

// RecordUpload counts an upload attempt and observes the size of accepted files
func (Recorder) RecordUpload(result string, size int64) {
	uploads.WithLabelValues(result).Inc()
	if result == "ok" {
		uploadBytes.Observe(float64(size))
	}
}

// RecordJanitorRun counts files removed and files that failed to delete
func (Recorder) RecordJanitorRun(removed, failed int) {
	janitorRemoved.WithLabelValues("removed").Add(float64(removed))
	janitorRemoved.WithLabelValues("failed").Add(float64(failed))
}

// RecordHTTPRequest records one handled HTTP request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
