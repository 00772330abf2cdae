package exclude

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

func TestCache_Lifecycle(t *testing.T) {
	c := New(Config{}, zap.NewNop())
	id := model.BlobID{Sat: 5, SatKey: 100}

	results := make([]Result, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.AddIfAbsent("c1", id)
		}(i)
	}
	wg.Wait()
	assert.ElementsMatch(t, []Result{Added, AlreadyInProgress}, results)

	assert.True(t, c.MarkCompleted("c1", id))
	assert.Equal(t, AlreadyCompleted, c.AddIfAbsent("c1", id))

	c.Remove("c1", id)
	assert.Equal(t, Added, c.AddIfAbsent("c1", id))
}

func TestCache_ClientsAreIndependent(t *testing.T) {
	c := New(Config{}, zap.NewNop())
	id := model.BlobID{Sat: 5, SatKey: 100}

	assert.Equal(t, Added, c.AddIfAbsent("c1", id))
	assert.Equal(t, Added, c.AddIfAbsent("c2", id))
	assert.False(t, c.MarkCompleted("c3", id))
	assert.Equal(t, Stats{Clients: 2, InProgress: 2}, c.Stats())
}

func TestCache_ManyConcurrentClaims(t *testing.T) {
	c := New(Config{}, zap.NewNop())
	id := model.BlobID{Sat: 1, SatKey: 1}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.AddIfAbsent("c1", id) == Added {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, added)
}

func TestCache_PerClientCap(t *testing.T) {
	c := New(Config{MaxEntriesPerClient: 2}, zap.NewNop())
	base := time.Unix(1000, 0)
	tick := 0
	c.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	a, b, d := model.BlobID{Sat: 1, SatKey: 1}, model.BlobID{Sat: 1, SatKey: 2}, model.BlobID{Sat: 1, SatKey: 3}
	c.AddIfAbsent("c1", a)
	c.AddIfAbsent("c1", b)
	c.MarkCompleted("c1", a)

	assert.Equal(t, Added, c.AddIfAbsent("c1", d))
	assert.Equal(t, Added, c.AddIfAbsent("c1", a), "oldest completed entry was evicted")
	assert.Equal(t, AlreadyInProgress, c.AddIfAbsent("c1", b))
}

func TestCache_Purge(t *testing.T) {
	c := New(Config{StaleAfter: time.Minute}, zap.NewNop())
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.AddIfAbsent("c1", model.BlobID{Sat: 1, SatKey: 1})
	now = now.Add(2 * time.Minute)
	c.AddIfAbsent("c1", model.BlobID{Sat: 1, SatKey: 2})

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, Stats{Clients: 1, InProgress: 1}, c.Stats())
}
