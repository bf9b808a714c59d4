package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

var recordKinds = []domain.RecordKind{domain.KindActuals, domain.KindAnticipateds}

// Metrics holds all Prometheus metrics for the budget API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	rowsIngested      *prometheus.CounterVec
	rowsDropped       *prometheus.CounterVec
	headerCorrections *prometheus.CounterVec
	rebuilds          *prometheus.CounterVec
	versions          *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budget_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_store_errors_total",
				Help: "Total errors returned by the persistence backend.",
			},
			[]string{"store"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_uploads_total",
				Help: "Spreadsheet uploads by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		rowsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_rows_ingested_total",
				Help: "Canonical records inserted from uploads and rebuilds.",
			},
			[]string{"kind"},
		),
		rowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_rows_dropped_total",
				Help: "Rows dropped for missing identifiers or amounts.",
			},
			[]string{"kind"},
		),
		headerCorrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_header_corrections_total",
				Help: "Column headers renamed by fuzzy matching.",
			},
			[]string{"kind"},
		),
		rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_rebuilds_total",
				Help: "Full rebuilds of a canonical collection.",
			},
			[]string{"kind"},
		),
		versions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "budget_upload_versions",
				Help: "Latest upload version number per kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the persistence error counter.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordUpload counts an upload outcome: "success", "rejected" or "error".
func (m *Metrics) RecordUpload(kind domain.RecordKind, status string) {
	m.uploads.WithLabelValues(string(kind), status).Inc()
}

// RecordRows adds inserted and dropped row counts for a kind.
func (m *Metrics) RecordRows(kind domain.RecordKind, inserted, dropped int) {
	m.rowsIngested.WithLabelValues(string(kind)).Add(float64(inserted))
	m.rowsDropped.WithLabelValues(string(kind)).Add(float64(dropped))
}

// RecordCorrections adds header corrections for a kind.
func (m *Metrics) RecordCorrections(kind domain.RecordKind, n int) {
	m.headerCorrections.WithLabelValues(string(kind)).Add(float64(n))
}

// IncrRebuild counts a full rebuild.
func (m *Metrics) IncrRebuild(kind domain.RecordKind) {
	m.rebuilds.WithLabelValues(string(kind)).Inc()
}

// SetLatestVersion publishes the latest version number of a kind.
func (m *Metrics) SetLatestVersion(kind domain.RecordKind, n int) {
	m.versions.WithLabelValues(string(kind)).Set(float64(n))
}

// GetIngestionSnapshot returns cumulative ingestion counters suitable for the
// GET /v1/metrics/ingestion endpoint.
func (m *Metrics) GetIngestionSnapshot() *domain.IngestionMetrics {
	snap := &domain.IngestionMetrics{
		Uploads:           make(map[domain.RecordKind]int64),
		RejectedUploads:   make(map[domain.RecordKind]int64),
		RowsIngested:      make(map[domain.RecordKind]int64),
		RowsDropped:       make(map[domain.RecordKind]int64),
		HeaderCorrections: make(map[domain.RecordKind]int64),
		Rebuilds:          make(map[domain.RecordKind]int64),
		Period:            "all_time",
	}

	var ingested, dropped float64
	for _, kind := range recordKinds {
		k := string(kind)
		snap.Uploads[kind] = int64(getCounterValue(m.uploads, k, "success"))
		snap.RejectedUploads[kind] = int64(getCounterValue(m.uploads, k, "rejected"))
		in := getCounterValue(m.rowsIngested, k)
		dr := getCounterValue(m.rowsDropped, k)
		snap.RowsIngested[kind] = int64(in)
		snap.RowsDropped[kind] = int64(dr)
		snap.HeaderCorrections[kind] = int64(getCounterValue(m.headerCorrections, k))
		snap.Rebuilds[kind] = int64(getCounterValue(m.rebuilds, k))
		ingested += in
		dropped += dr
	}

	if ingested+dropped > 0 {
		snap.DropRate = dropped / (ingested + dropped)
	}
	hits := getCounterValue(m.cacheHits, "budget")
	misses := getCounterValue(m.cacheMisses, "budget")
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
