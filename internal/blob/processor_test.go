package blob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/storage"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

const fixtureYAML = `
blob_props:
  - blob_id: {sat: 4, sat_key: 100}
    last_modified: 10
    size: 6
    n_chunks: 2
  - blob_id: {sat: 4, sat_key: 200}
    last_modified: 10
    size: 6
    n_chunks: 3
blob_chunks:
  - blob_id: {sat: 4, sat_key: 100}
    index: 1
    data: "def"
  - blob_id: {sat: 4, sat_key: 100}
    index: 0
    data: "abc"
  - blob_id: {sat: 4, sat_key: 200}
    index: 0
    data: "abc"
`

var (
	goodBlob   = model.BlobID{Sat: 4, SatKey: 100}
	brokenBlob = model.BlobID{Sat: 4, SatKey: 200}
)

type outcome struct {
	res Result
	err *errors.Error
}

func newFetcher(t *testing.T) (*Fetcher, *exclude.Cache, *storage.MemoryStore) {
	pool := workerpool.New(&workerpool.Config{Name: "blob-test", Workers: 2, QueueSize: 16, Logger: zap.NewNop()})
	t.Cleanup(func() { pool.Stop(time.Second) })

	f, err := storage.ParseFixtures([]byte(fixtureYAML))
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	store.Load(f)

	ex := exclude.New(exclude.Config{MaxEntriesPerClient: 16, StaleAfter: time.Minute}, zap.NewNop())
	return NewFetcher(store, pool, ex, nil, zap.NewNop()), ex, store
}

// runFetch delivers one fetch and leaves its tasks owned by the returned base
func runFetch(t *testing.T, f *Fetcher, client string, id model.BlobID) (outcome, *processor.Base) {
	t.Helper()
	ch := make(chan outcome, 1)
	base := processor.NewBase("blob", 0, zap.NewNop())
	f.Fetch(context.Background(), client, id, base,
		func(r Result) { ch <- outcome{res: r} },
		func(err *errors.Error) { ch <- outcome{err: err} })

	select {
	case o := <-ch:
		return o, base
	case <-time.After(2 * time.Second):
		t.Fatal("blob fetch not delivered")
		return outcome{}, base
	}
}

func fetchBlob(t *testing.T, f *Fetcher, client string, id model.BlobID) outcome {
	t.Helper()
	o, base := runFetch(t, f, client, id)
	base.ReleaseAll()
	return o
}

func TestFetch_DeliversChunksInOrder(t *testing.T) {
	f, ex, _ := newFetcher(t)

	o := fetchBlob(t, f, "client-1", goodBlob)

	require.Nil(t, o.err)
	assert.False(t, o.res.Excluded)
	require.Len(t, o.res.Chunks, 2)
	assert.Equal(t, "abc", string(o.res.Chunks[0].Data))
	assert.Equal(t, "def", string(o.res.Chunks[1].Data))
	assert.Equal(t, 6, o.res.Size())
	assert.Equal(t, 0, ex.Stats().Completed, "slot freed once the tasks are destroyed")
}

func TestFetch_ExcludesRepeatedBlob(t *testing.T) {
	f, ex, store := newFetcher(t)

	first, owner := runFetch(t, f, "client-1", goodBlob)
	require.Nil(t, first.err)
	assert.False(t, first.res.Excluded)
	assert.Equal(t, 1, ex.Stats().Completed)
	queries := store.Queries()

	again := fetchBlob(t, f, "client-1", goodBlob)
	require.Nil(t, again.err)
	assert.True(t, again.res.Excluded)
	assert.Equal(t, exclude.AlreadyCompleted, again.res.Claim)
	assert.Equal(t, queries, store.Queries(), "excluded blobs cost no storage work")

	other := fetchBlob(t, f, "client-2", goodBlob)
	require.Nil(t, other.err)
	assert.False(t, other.res.Excluded)

	owner.ReleaseAll()
	assert.Equal(t, exclude.Added, ex.AddIfAbsent("client-1", goodBlob))
}

func TestFetch_ExcludesBlobInProgress(t *testing.T) {
	f, ex, store := newFetcher(t)

	require.Equal(t, exclude.Added, ex.AddIfAbsent("client-1", goodBlob))
	queries := store.Queries()

	o := fetchBlob(t, f, "client-1", goodBlob)
	require.Nil(t, o.err)
	assert.True(t, o.res.Excluded)
	assert.Equal(t, exclude.AlreadyInProgress, o.res.Claim)
	assert.Equal(t, queries, store.Queries())
	assert.Equal(t, exclude.AlreadyInProgress, ex.AddIfAbsent("client-1", goodBlob),
		"an excluded fetch does not free a slot it never owned")
}

func TestFetch_FailureReleasesClaim(t *testing.T) {
	f, ex, _ := newFetcher(t)

	o := fetchBlob(t, f, "client-1", brokenBlob)
	require.NotNil(t, o.err)
	assert.Equal(t, errors.KindDataInconsistency, o.err.Kind)
	assert.Equal(t, errors.StatusBadGateway, o.err.Status)

	stats := ex.Stats()
	assert.Equal(t, 0, stats.InProgress)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, exclude.Added, ex.AddIfAbsent("client-1", brokenBlob), "slot is free again")
}

func TestFetch_NotFoundAndInvalid(t *testing.T) {
	f, ex, _ := newFetcher(t)

	o := fetchBlob(t, f, "client-1", model.BlobID{Sat: 9, SatKey: 9})
	require.NotNil(t, o.err)
	assert.Equal(t, errors.StatusNotFound, o.err.Status)
	assert.Equal(t, 0, ex.Stats().InProgress)

	o = fetchBlob(t, f, "client-1", model.BlobID{Sat: 1, SatKey: 0})
	require.NotNil(t, o.err)
	assert.Equal(t, errors.KindInvalidArgument, o.err.Kind)
}

func TestFetch_CanceledBaseFreesClaim(t *testing.T) {
	f, ex, _ := newFetcher(t)
	base := processor.NewBase("blob", 0, zap.NewNop())
	base.Cancel()

	delivered := make(chan struct{}, 1)
	f.Fetch(context.Background(), "client-1", goodBlob, base,
		func(Result) { delivered <- struct{}{} },
		func(*errors.Error) { delivered <- struct{}{} })
	base.ReleaseAll()

	select {
	case <-delivered:
		t.Fatal("canceled fetch must stay silent")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 0, ex.Stats().InProgress)
}
