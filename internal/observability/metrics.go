package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mountain_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for scrape runs.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration      prometheus.Histogram
	PagesFetched     *prometheus.CounterVec // labels: outcome={success,error}
	DecodeErrors     *prometheus.CounterVec // labels: reason
	RecordsScraped   prometheus.Counter
	DatasetRecords   prometheus.Gauge
	RecordsUpserted  *prometheus.CounterVec // labels: result={inserted,updated}
	RecordsPublished prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Elevation lookup cache.
	ElevationCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PagesFetched,
		m.DecodeErrors,
		m.RecordsScraped,
		m.DatasetRecords,
		m.RecordsUpserted,
		m.RecordsPublished,
		m.PipelineRunning,
		m.ElevationCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scrape runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete scrape-decode-merge run.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Forecast page fetches by outcome.",
		}, []string{"outcome"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Forecast tables that failed alignment, by reason.",
		}, []string{"reason"}),
		RecordsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_scraped_total",
			Help:      "Time-slot records decoded from forecast pages.",
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records in the current month's dataset after the last merge.",
		}),
		RecordsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Records merged into the dataset, split by insert or update.",
		}, []string{"result"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records published to the Kafka topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a scrape run is in progress.",
		}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_cache_total",
			Help:      "Elevation URL cache lookups by result.",
		}, []string{"result"}),
	}
}
