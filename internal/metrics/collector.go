package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// Collector exports point-in-time gauges read from the processor registry,
// the fetch pool and the exclude cache at scrape time
type Collector struct {
	registry *processor.Registry
	pool     *workerpool.Pool
	exclude  *exclude.Cache

	active     *prometheus.Desc
	backlog    *prometheus.Desc
	poolBusy   *prometheus.Desc
	poolQueued *prometheus.Desc
	excluded   *prometheus.Desc
}

// NewCollector creates a collector; pool and exclude may be nil
func NewCollector(registry *processor.Registry, pool *workerpool.Pool, ex *exclude.Cache) *Collector {
	return &Collector{
		registry: registry,
		pool:     pool,
		exclude:  ex,
		active: prometheus.NewDesc("seqgate_processors_active",
			"Running processors by request type and processor",
			[]string{"request_type", "processor"}, nil),
		backlog: prometheus.NewDesc("seqgate_backlog",
			"Requests waiting for admission by request type",
			[]string{"request_type"}, nil),
		poolBusy: prometheus.NewDesc("seqgate_fetch_pool_busy",
			"Fetch pool workers running a query", nil, nil),
		poolQueued: prometheus.NewDesc("seqgate_fetch_pool_queued",
			"Fetch queries waiting for a worker", nil, nil),
		excluded: prometheus.NewDesc("seqgate_exclude_entries",
			"Exclude cache entries by state", []string{"state"}, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.backlog
	ch <- c.poolBusy
	ch <- c.poolQueued
	ch <- c.excluded
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.registry.Snapshot()
	for reqType, byProc := range snap.Active {
		for proc, n := range byProc {
			ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(n), reqType, proc)
		}
	}
	for reqType, n := range snap.Backlog {
		ch <- prometheus.MustNewConstMetric(c.backlog, prometheus.GaugeValue, float64(n), reqType)
	}

	if c.pool != nil {
		s := c.pool.Stats()
		ch <- prometheus.MustNewConstMetric(c.poolBusy, prometheus.GaugeValue, float64(s.Busy))
		ch <- prometheus.MustNewConstMetric(c.poolQueued, prometheus.GaugeValue, float64(s.Queued))
	}
	if c.exclude != nil {
		s := c.exclude.Stats()
		ch <- prometheus.MustNewConstMetric(c.excluded, prometheus.GaugeValue, float64(s.InProgress), "in_progress")
		ch <- prometheus.MustNewConstMetric(c.excluded, prometheus.GaugeValue, float64(s.Completed), "completed")
	}
}
