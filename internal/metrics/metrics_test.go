package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordResolution("found_in_primary_cache", 1)
	m.RecordResolution("found_in_primary_cache", 3)
	m.RecordCacheLookup("bioseq_info", "hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("found_in_primary_cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("bioseq_info", "hit")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("resolve", "200", 0.1)
		m.RecordError("resolve", "logic_error")
		m.RecordBlob("ok")
	})
}

func TestCollector(t *testing.T) {
	reg := processor.NewRegistry("cache", "storage")
	require.NoError(t, reg.IncActive(processor.RequestResolve, 1))
	require.NoError(t, reg.IncBacklog(processor.RequestBlobByID))

	ex := exclude.New(exclude.Config{}, zap.NewNop())
	ex.AddIfAbsent("c1", model.BlobID{Sat: 1, SatKey: 2})

	c := NewCollector(reg, nil, ex)

	expected := `
# HELP seqgate_backlog Requests waiting for admission by request type
# TYPE seqgate_backlog gauge
seqgate_backlog{request_type="get_blob_by_sat_sat_key"} 1
seqgate_backlog{request_type="get_blob_by_seq_id"} 0
seqgate_backlog{request_type="get_na"} 0
seqgate_backlog{request_type="resolve"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "seqgate_backlog"))
	assert.Equal(t, 8+4+2, testutil.CollectAndCount(c))
}
