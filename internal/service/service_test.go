package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/blob"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/cache"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/metrics"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/resolve"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/storage"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// MockStore is a mock implementation of storage.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) QueryBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BioseqRecord), args.Error(1)
}

func (m *MockStore) QuerySi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Si2csiRecord), args.Error(1)
}

func (m *MockStore) QueryBlobProps(ctx context.Context, id model.BlobID) ([]model.BlobProps, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlobProps), args.Error(1)
}

func (m *MockStore) QueryBlobChunks(ctx context.Context, id model.BlobID, nChunks int32) ([]model.BlobChunk, error) {
	args := m.Called(ctx, id, nChunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlobChunk), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Close() {}

var record = model.BioseqRecord{
	Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank, GI: 12345,
	Sat: 4, SatKey: 100,
}

type env struct {
	svc   *GatewayService
	tier  *cache.MemoryTier
	reg   *prometheus.Registry
	ex    *exclude.Cache
	procs *processor.Registry
}

func newEnv(t *testing.T, store storage.Store, cfg Config) *env {
	logger := zap.NewNop()
	pool := workerpool.New(&workerpool.Config{Name: "service-test", Workers: 4, QueueSize: 64, Logger: logger})
	t.Cleanup(func() { pool.Stop(time.Second) })

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	tier := cache.NewMemoryTier()
	ex := exclude.New(exclude.Config{MaxEntriesPerClient: 8, StaleAfter: time.Minute}, logger)
	procs := processor.NewRegistry(Processors()...)

	resolver := resolve.NewResolver(cache.NewLookup(tier, logger), store, pool, m,
		resolve.Config{AnnounceTimeout: 200 * time.Millisecond}, logger)
	fetcher := blob.NewFetcher(store, pool, ex, m, logger)

	return &env{
		svc:   NewGatewayService(resolver, fetcher, procs, m, cfg, logger),
		tier:  tier,
		reg:   reg,
		ex:    ex,
		procs: procs,
	}
}

func memoryStore(t *testing.T) *storage.MemoryStore {
	f, err := storage.ParseFixtures([]byte(`
blob_props:
  - blob_id: {sat: 4, sat_key: 100}
    last_modified: 1
    size: 3
    n_chunks: 1
blob_chunks:
  - blob_id: {sat: 4, sat_key: 100}
    index: 0
    data: "ACG"
`))
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	store.Load(f)
	store.AddBioseqInfo(record)
	return store
}

func resolveRequest(ids ...string) *ResolveRequest {
	req := &ResolveRequest{AccSubstitution: model.AccSubstitutionNever}
	for _, id := range ids {
		req.Candidates = append(req.Candidates, model.NewCandidateID(id))
	}
	return req
}

func assertIdle(t *testing.T, procs *processor.Registry) {
	t.Helper()
	snap := procs.Snapshot()
	for reqType, byProc := range snap.Active {
		for name, n := range byProc {
			assert.Zero(t, n, "%s/%s still active", reqType, name)
		}
	}
	for reqType, n := range snap.Backlog {
		assert.Zero(t, n, "%s still backlogged", reqType)
	}
}

func TestGatewayService_Resolve(t *testing.T) {
	e := newEnv(t, memoryStore(t), Config{})

	outcome, err := e.svc.Resolve(context.Background(), resolveRequest("BAD-1", "ab123456.1"))

	require.NoError(t, err)
	assert.Equal(t, resolve.FoundInPrimaryStorage, outcome.Result)
	assert.Equal(t, "AB123456", outcome.Record.Accession)
	assertIdle(t, e.procs)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.svc.metrics.RequestsTotal.WithLabelValues("resolve", "200")))
}

func TestGatewayService_ResolveErrors(t *testing.T) {
	e := newEnv(t, memoryStore(t), Config{})

	_, err := e.svc.Resolve(context.Background(), resolveRequest())
	assert.Equal(t, errors.KindInvalidArgument, errors.KindOf(err))

	_, err = e.svc.Resolve(context.Background(), resolveRequest("NM_000404.1"))
	require.Error(t, err)
	assert.Equal(t, errors.StatusNotFound, errors.StatusOf(err))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.svc.metrics.RequestErrors.WithLabelValues("resolve", "not_found")),
		"not found is not a hard error")
	assertIdle(t, e.procs)
}

func TestGatewayService_Race(t *testing.T) {
	t.Run("cache answer wins", func(t *testing.T) {
		store := new(MockStore)
		store.On("QueryBioseqInfo", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("connection refused"))
		e := newEnv(t, store, Config{RaceTiers: true})
		require.NoError(t, e.tier.PutBioseqInfo(context.Background(), record))

		outcome, err := e.svc.Resolve(context.Background(), resolveRequest("AB123456.1"))

		require.NoError(t, err)
		assert.Equal(t, resolve.FoundInPrimaryCache, outcome.Result)
		assert.Equal(t, 1.0, testutil.ToFloat64(e.svc.metrics.RaceWinners.WithLabelValues(ProcessorResolveCache)))
		assertIdle(t, e.procs)
	})

	t.Run("storage answers a cache miss", func(t *testing.T) {
		e := newEnv(t, memoryStore(t), Config{RaceTiers: true})

		outcome, err := e.svc.Resolve(context.Background(), resolveRequest("AB123456.1"))

		require.NoError(t, err)
		assert.Equal(t, resolve.FoundInPrimaryStorage, outcome.Result)
		assert.Equal(t, 1.0, testutil.ToFloat64(e.svc.metrics.RaceWinners.WithLabelValues(ProcessorResolveStorage)))
		assertIdle(t, e.procs)
	})

	t.Run("both miss", func(t *testing.T) {
		e := newEnv(t, storage.NewMemoryStore(), Config{RaceTiers: true})

		_, err := e.svc.Resolve(context.Background(), resolveRequest("AB123456.1"))

		assert.Equal(t, errors.StatusNotFound, errors.StatusOf(err))
		assertIdle(t, e.procs)
	})
}

func TestGatewayService_AdmissionBacklog(t *testing.T) {
	e := newEnv(t, memoryStore(t), Config{MaxActivePerType: 1})

	release, err := e.svc.admit(context.Background(), processor.RequestResolve)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := e.svc.Resolve(context.Background(), resolveRequest("AB123456.1"))
		done <- err
	}()

	require.Eventually(t, func() bool {
		return e.procs.Backlog(processor.RequestResolve) == 1
	}, time.Second, 5*time.Millisecond)

	release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("backlogged request never admitted")
	}
	assertIdle(t, e.procs)
}

func TestGatewayService_AdmissionTimeout(t *testing.T) {
	e := newEnv(t, memoryStore(t), Config{MaxActivePerType: 1, RequestTimeout: 30 * time.Millisecond})

	release, err := e.svc.admit(context.Background(), processor.RequestResolve)
	require.NoError(t, err)
	defer release()

	_, err = e.svc.Resolve(context.Background(), resolveRequest("AB123456.1"))
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Zero(t, e.procs.Backlog(processor.RequestResolve))
}

func TestGatewayService_Blobs(t *testing.T) {
	e := newEnv(t, memoryStore(t), Config{})
	req := &BlobRequest{Resolve: *resolveRequest("AB123456"), ClientID: "client-1"}

	resp, err := e.svc.GetBlobBySeqID(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, model.BlobID{Sat: 4, SatKey: 100}, resp.Blob.BlobID)
	require.Len(t, resp.Blob.Chunks, 1)
	assert.Equal(t, "ACG", string(resp.Blob.Chunks[0].Data))

	resp, err = e.svc.GetBlobByID(context.Background(), "client-1", model.BlobID{Sat: 4, SatKey: 100})
	require.NoError(t, err)
	assert.False(t, resp.Blob.Excluded, "slot is freed when the first request finishes")

	require.Equal(t, exclude.Added, e.ex.AddIfAbsent("client-2", model.BlobID{Sat: 4, SatKey: 100}))
	resp, err = e.svc.GetBlobByID(context.Background(), "client-2", model.BlobID{Sat: 4, SatKey: 100})
	require.NoError(t, err)
	assert.True(t, resp.Blob.Excluded)
	assert.Equal(t, exclude.AlreadyInProgress, resp.Blob.Claim)

	_, err = e.svc.GetBlobByID(context.Background(), "client-1", model.BlobID{Sat: 4, SatKey: 0})
	assert.Equal(t, errors.KindInvalidArgument, errors.KindOf(err))
	assertIdle(t, e.procs)
}
