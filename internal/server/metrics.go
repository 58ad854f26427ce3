package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one server. Each server owns its registry.
type Metrics struct {
	registry       *prometheus.Registry
	retrievals     *prometheus.CounterVec
	retrievalTime  prometheus.Histogram
	feedbackEvents *prometheus.CounterVec
	builds         *prometheus.CounterVec
	storeRecords   prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragfeed_retrievals_total",
			Help: "Retrieval requests by status.",
		}, []string{"status"}),
		retrievalTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragfeed_retrieval_duration_seconds",
			Help:    "Time to answer a retrieval request.",
			Buckets: prometheus.DefBuckets,
		}),
		feedbackEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragfeed_feedback_events_total",
			Help: "Feedback events recorded, by judgement.",
		}, []string{"helpful"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragfeed_builds_total",
			Help: "Store builds by result.",
		}, []string{"result"}),
		storeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ragfeed_store_records",
			Help: "Records in the most recently served store.",
		}),
	}
	m.registry.MustRegister(
		m.retrievals,
		m.retrievalTime,
		m.feedbackEvents,
		m.builds,
		m.storeRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRetrieval records one retrieval with its outcome.
func (m *Metrics) ObserveRetrieval(status string, d time.Duration, storeSize int) {
	m.retrievals.WithLabelValues(status).Inc()
	m.retrievalTime.Observe(d.Seconds())
	if storeSize >= 0 {
		m.storeRecords.Set(float64(storeSize))
	}
}

// ObserveFeedback counts n recorded events.
func (m *Metrics) ObserveFeedback(helpful bool, n int) {
	m.feedbackEvents.WithLabelValues(strconv.FormatBool(helpful)).Add(float64(n))
}

// ObserveBuild counts a build with result ok, empty or error.
func (m *Metrics) ObserveBuild(result string) {
	m.builds.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
