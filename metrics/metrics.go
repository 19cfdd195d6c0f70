// Package metrics exposes docseek engine activity as Prometheus metrics.
//
// A Collector implements search.Monitor, so attaching it to an engine with
// search.WithMonitor is enough to record searches, embedding generation and
// index builds.
package metrics

import (
	"time"

	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/index"
	"github.com/poiesic/docseek/search"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docseek"

var _ search.Monitor = (*Collector)(nil)

// Collector records engine metrics into its own registry.
type Collector struct {
	registry *prometheus.Registry

	searchTotal       *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchInFlight    prometheus.Gauge
	queryEmbedLatency prometheus.Histogram
	indexLatency      prometheus.Histogram
	resultCount       prometheus.Histogram

	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Histogram
	cacheLookups       *prometheus.CounterVec
	embedFailures      prometheus.Counter

	indexBuilds       *prometheus.CounterVec
	indexBuildLatency prometheus.Histogram
	indexedDocuments  prometheus.Gauge
	indexFallback     prometheus.Gauge
}

// NewCollector creates a Collector with a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		searchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "queries_total",
				Help:      "Total search queries by status.",
			},
			[]string{"status"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "End to end search latency by status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		searchInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "in_flight",
				Help:      "Number of searches currently running.",
			},
		),
		queryEmbedLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "query_embedding_seconds",
				Help:      "Time from search start until the query embedding is ready.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		indexLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "index_seconds",
				Help:      "Time spent in the vector index per search.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		resultCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of results returned per successful search.",
				Buckets:   []float64{0, 1, 5, 10, 20, 50},
			},
		),
		generationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "generations_total",
				Help:      "Embedding generation runs by status.",
			},
			[]string{"status"},
		),
		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "generation_duration_seconds",
				Help:      "Embedding generation run duration.",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "cache_lookups_total",
				Help:      "Embedding cache lookups by result.",
			},
			[]string{"result"},
		),
		embedFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "document_failures_total",
				Help:      "Documents that could not be embedded.",
			},
		),
		indexBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "builds_total",
				Help:      "Index builds by active strategy.",
			},
			[]string{"strategy"},
		),
		indexBuildLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "build_duration_seconds",
				Help:      "Index build duration.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		indexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "documents",
				Help:      "Documents in the serving index.",
			},
		),
		indexFallback: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "fallback",
				Help:      "1 when the serving index fell back from the requested strategy.",
			},
		),
	}

	registry.MustRegister(
		c.searchTotal, c.searchDuration, c.searchInFlight,
		c.queryEmbedLatency, c.indexLatency, c.resultCount,
		c.generationTotal, c.generationDuration, c.cacheLookups, c.embedFailures,
		c.indexBuilds, c.indexBuildLatency, c.indexedDocuments, c.indexFallback,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteToTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func (c *Collector) Start(_ string) {
	c.searchInFlight.Inc()
}

func (c *Collector) AfterQueryEmbedding(elapsed time.Duration) {
	c.queryEmbedLatency.Observe(elapsed.Seconds())
}

func (c *Collector) AfterIndexSearch(_ int, elapsed time.Duration) {
	c.indexLatency.Observe(elapsed.Seconds())
}

func (c *Collector) Finish(results []core.SearchResult, err error, elapsed time.Duration) {
	c.searchInFlight.Dec()
	status := Status(err)
	c.searchTotal.WithLabelValues(status).Inc()
	c.searchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if err == nil {
		c.resultCount.Observe(float64(len(results)))
	}
}

func (c *Collector) GenerationFinished(report *embedding.Report, err error) {
	c.generationTotal.WithLabelValues(Status(err)).Inc()
	if report == nil {
		return
	}
	c.generationDuration.Observe(report.Elapsed.Seconds())
	c.cacheLookups.WithLabelValues("hit").Add(float64(report.Hits))
	c.cacheLookups.WithLabelValues("miss").Add(float64(report.Misses))
	c.embedFailures.Add(float64(len(report.Failures)))
}

func (c *Collector) IndexBuilt(sel index.Selection, size int, elapsed time.Duration) {
	c.indexBuilds.WithLabelValues(sel.Active).Inc()
	c.indexBuildLatency.Observe(elapsed.Seconds())
	c.indexedDocuments.Set(float64(size))
	if sel.Fallback {
		c.indexFallback.Set(1)
	} else {
		c.indexFallback.Set(0)
	}
}

// Status maps an operation error to a metric label.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsClientFault(err):
		return "client_error"
	case core.IsServerFault(err):
		return "server_error"
	default:
		return "error"
	}
}
