// Package metrics holds the Prometheus collectors for source fetches, event
// queries and HTTP requests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "fisica_eventos"

// Fetch statuses.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Query outcomes.
const (
	OutcomeEvents        = "events"
	OutcomeNoEvents      = "no_events"
	OutcomeUnknownRegion = "unknown_region"
)

// Metrics groups all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SourceFetchesTotal  *prometheus.CounterVec
	SourceFetchDuration *prometheus.HistogramVec

	QueriesTotal   *prometheus.CounterVec
	EventsReturned prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initSourceMetrics(factory)
	m.initQueryMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initSourceMetrics(factory promauto.Factory) {
	m.SourceFetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Source fetches by outcome",
		},
		[]string{"source", "status"},
	)

	m.SourceFetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching and extracting one source",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"source"},
	)
}

func (m *Metrics) initQueryMetrics(factory promauto.Factory) {
	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Event queries by outcome",
		},
		[]string{"outcome"},
	)

	m.EventsReturned = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "events_returned",
			Help:      "Events returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
}

// ObserveFetch records one source fetch.
func (m *Metrics) ObserveFetch(source, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceFetchesTotal.WithLabelValues(source, status).Inc()
	m.SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveQuery records one pipeline run and the number of events it returned.
func (m *Metrics) ObserveQuery(outcome string, events int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.EventsReturned.Observe(float64(events))
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
