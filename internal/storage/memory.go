package storage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// MemoryStore is an in-process Store seeded from fixtures
type MemoryStore struct {
	mu      sync.RWMutex
	bioseq  []model.BioseqRecord
	si2csi  []model.Si2csiRecord
	props   map[model.BlobID][]model.BlobProps
	chunks  map[model.BlobID][]model.BlobChunk
	queries int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		props:  make(map[model.BlobID][]model.BlobProps),
		chunks: make(map[model.BlobID][]model.BlobChunk),
	}
}

// Load adds every record of the fixtures
func (m *MemoryStore) Load(f *Fixtures) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range f.BioseqInfo {
		m.bioseq = append(m.bioseq, rec.Clone())
	}
	m.si2csi = append(m.si2csi, f.Si2csi...)
	for _, p := range f.BlobProps {
		m.props[p.BlobID] = append(m.props[p.BlobID], p)
	}
	for _, c := range f.BlobChunks {
		m.chunks[c.BlobID] = append(m.chunks[c.BlobID], c.chunk())
	}
}

// AddBioseqInfo adds one record
func (m *MemoryStore) AddBioseqInfo(recs ...model.BioseqRecord) {
	m.Load(&Fixtures{BioseqInfo: recs})
}

// AddSi2csi adds mappings
func (m *MemoryStore) AddSi2csi(recs ...model.Si2csiRecord) {
	m.Load(&Fixtures{Si2csi: recs})
}

// Queries returns how many queries the store answered
func (m *MemoryStore) Queries() int64 {
	return atomic.LoadInt64(&m.queries)
}

func (m *MemoryStore) QueryBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.BioseqRecord
	for _, rec := range m.bioseq {
		if key.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) QuerySi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Si2csiRecord
	for _, rec := range m.si2csi {
		if key.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) QueryBlobProps(ctx context.Context, id model.BlobID) ([]model.BlobProps, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]model.BlobProps(nil), m.props[id]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified > out[j].LastModified })
	return out, nil
}

func (m *MemoryStore) QueryBlobChunks(ctx context.Context, id model.BlobID, nChunks int32) ([]model.BlobChunk, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.BlobChunk
	for _, c := range m.chunks[id] {
		if c.Index < nChunks {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *MemoryStore) enter(ctx context.Context) error {
	atomic.AddInt64(&m.queries, 1)
	return ctx.Err()
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }
func (m *MemoryStore) Close()                         {}
