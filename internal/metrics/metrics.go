// Package metrics exposes counters of the ingestion and matching pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "job_alerter"

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
	ResultCached = "cached"
	ResultEmpty  = "empty"
)

type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	messages      *prometheus.CounterVec
	jobsStored    prometheus.Counter
	alerts        *prometheus.CounterVec
	aiRequests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scrape and alert cycles by result.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of scrape and alert cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_messages_total",
			Help:      "Fetched channel messages by source.",
		}, []string{"source"}),
		jobsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_stored_total",
			Help:      "Job postings stored for the first time.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert deliveries by result.",
		}, []string{"result"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "AI classification and extraction calls by task and result.",
		}, []string{"task", "result"}),
	}

	m.registry.MustRegister(
		m.cycles, m.cycleDuration, m.messages, m.jobsStored, m.alerts, m.aiRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Cycle(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(took.Seconds())
}

func (m *Metrics) Messages(source string, n int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) JobStored() {
	if m == nil {
		return
	}
	m.jobsStored.Inc()
}

func (m *Metrics) Alert(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}

func (m *Metrics) AIRequest(task, result string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(task, result).Inc()
}
