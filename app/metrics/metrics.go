// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediumplus"

// Metrics groups every collector the application records to. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	cmsRequests   *prometheus.CounterVec
	cmsDuration   *prometheus.HistogramVec
	pageRequests  *prometheus.CounterVec
	regenerations *prometheus.CounterVec
	comments      *prometheus.CounterVec
	prebuilds     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		cmsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cms",
			Name:      "requests_total",
			Help:      "Requests sent to the content API by operation and outcome.",
		}, []string{"op", "outcome"}),
		cmsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cms",
			Name:      "request_duration_seconds",
			Help:      "Latency of content API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "requests_total",
			Help:      "Detail page lookups by cache state.",
		}, []string{"state"}),
		regenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "regenerations_total",
			Help:      "Page generations by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "submissions_total",
			Help:      "Comment submissions by outcome.",
		}, []string{"outcome"}),
		prebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "prebuilt_total",
			Help:      "Pages built ahead of requests by outcome.",
		}, []string{"outcome"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cmsRequests,
		m.cmsDuration,
		m.pageRequests,
		m.regenerations,
		m.comments,
		m.prebuilds,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveCMS(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cmsRequests.WithLabelValues(op, outcome).Inc()
	m.cmsDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) PageServed(state string) {
	if m == nil {
		return
	}
	m.pageRequests.WithLabelValues(state).Inc()
}

func (m *Metrics) Regenerated(trigger, outcome string) {
	if m == nil {
		return
	}
	m.regenerations.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) CommentSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.comments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Prebuilt(outcome string) {
	if m == nil {
		return
	}
	m.prebuilds.WithLabelValues(outcome).Inc()
}
