package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Resolution metrics
	Resolutions      *prometheus.CounterVec
	ResolveQueries   prometheus.Histogram
	AdjustmentsTotal *prometheus.CounterVec

	// Tier metrics
	CacheLookups   *prometheus.CounterVec
	StorageQueries *prometheus.CounterVec

	// Blob metrics
	BlobsTotal    *prometheus.CounterVec
	ExcludeClaims *prometheus.CounterVec
	RaceWinners   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"request_type", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seqgate_request_duration_seconds",
				Help:    "Duration of request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"request_type"},
		),

		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_request_errors_total",
				Help: "Hard request errors; timeouts and cancellations are not counted",
			},
			[]string{"request_type", "error_kind"},
		),

		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_resolutions_total",
				Help: "Finished seq_id resolutions by result",
			},
			[]string{"result"},
		),

		ResolveQueries: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seqgate_resolve_queries",
				Help:    "Tier queries issued per resolution",
				Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),

		AdjustmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_accession_adjustments_total",
				Help: "Accession adjustment outcomes",
			},
			[]string{"outcome"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_cache_lookups_total",
				Help: "Cache lookups by table and outcome",
			},
			[]string{"table", "outcome"},
		),

		StorageQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_storage_queries_total",
				Help: "Storage queries by table and status",
			},
			[]string{"table", "status"},
		),

		BlobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_blobs_total",
				Help: "Blob retrievals by status",
			},
			[]string{"status"},
		),

		ExcludeClaims: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_exclude_claims_total",
				Help: "Exclude cache claims by result",
			},
			[]string{"result"},
		),

		RaceWinners: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seqgate_race_winners_total",
				Help: "Racing processor that delivered the result",
			},
			[]string{"processor"},
		),
	}
}

// Every Record helper is a no-op on a nil *Metrics so components can run
// without a registry in tests.

// RecordRequest records a finished request
func (m *Metrics) RecordRequest(requestType, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(requestType, status).Inc()
	m.RequestDuration.WithLabelValues(requestType).Observe(duration)
}

// RecordError records a hard error
func (m *Metrics) RecordError(requestType, kind string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(requestType, kind).Inc()
}

// RecordResolution records the result of one resolution and its query count
func (m *Metrics) RecordResolution(result string, queries int) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(result).Inc()
	m.ResolveQueries.Observe(float64(queries))
}

// RecordAdjustment records an accession adjustment outcome
func (m *Metrics) RecordAdjustment(outcome string) {
	if m == nil {
		return
	}
	m.AdjustmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache lookup
func (m *Metrics) RecordCacheLookup(table, outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(table, outcome).Inc()
}

// RecordStorageQuery records a storage query
func (m *Metrics) RecordStorageQuery(table, status string) {
	if m == nil {
		return
	}
	m.StorageQueries.WithLabelValues(table, status).Inc()
}

// RecordBlob records a blob retrieval
func (m *Metrics) RecordBlob(status string) {
	if m == nil {
		return
	}
	m.BlobsTotal.WithLabelValues(status).Inc()
}

// RecordExcludeClaim records an exclude cache claim
func (m *Metrics) RecordExcludeClaim(result string) {
	if m == nil {
		return
	}
	m.ExcludeClaims.WithLabelValues(result).Inc()
}

// RecordRaceWinner records which racing processor answered
func (m *Metrics) RecordRaceWinner(processor string) {
	if m == nil {
		return
	}
	m.RaceWinners.WithLabelValues(processor).Inc()
}
