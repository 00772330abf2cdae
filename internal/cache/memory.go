package cache

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// MemoryTier is a process-local Tier, used when no cache file is configured
// and in tests
type MemoryTier struct {
	mu     sync.RWMutex
	bioseq map[string]map[string]model.BioseqRecord
	si2csi map[string]map[string]model.Si2csiRecord
}

// NewMemoryTier creates an empty memory tier
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{
		bioseq: make(map[string]map[string]model.BioseqRecord),
		si2csi: make(map[string]map[string]model.Si2csiRecord),
	}
}

// FetchBioseqInfo returns matching records in key order
func (m *MemoryTier) FetchBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.BioseqRecord
	for _, rec := range m.bioseq[key.Accession] {
		if key.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sortBioseq(out)
	return out, nil
}

// FetchSi2csi returns matching mappings in key order
func (m *MemoryTier) FetchSi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Si2csiRecord
	for _, rec := range m.si2csi[key.SecSeqID] {
		if key.Matches(rec) {
			out = append(out, rec)
		}
	}
	sortSi2csi(out)
	return out, nil
}

// PutBioseqInfo stores or replaces a record
func (m *MemoryTier) PutBioseqInfo(ctx context.Context, rec model.BioseqRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.bioseq[rec.Accession]
	if !ok {
		byKey = make(map[string]model.BioseqRecord)
		m.bioseq[rec.Accession] = byKey
	}
	byKey[string(bioseqKey(rec))] = rec.Clone()
	return nil
}

// PutSi2csi stores or replaces a mapping
func (m *MemoryTier) PutSi2csi(ctx context.Context, rec model.Si2csiRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.si2csi[rec.SecSeqID]
	if !ok {
		byKey = make(map[string]model.Si2csiRecord)
		m.si2csi[rec.SecSeqID] = byKey
	}
	byKey[string(si2csiKey(rec))] = rec
	return nil
}

// Size returns the number of stored records of both kinds
func (m *MemoryTier) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, byKey := range m.bioseq {
		n += len(byKey)
	}
	for _, byKey := range m.si2csi {
		n += len(byKey)
	}
	return n
}

func (m *MemoryTier) Ping(ctx context.Context) error { return nil }
func (m *MemoryTier) Close() error                   { return nil }

func sortBioseq(recs []model.BioseqRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return bytes.Compare(bioseqKey(recs[i]), bioseqKey(recs[j])) < 0
	})
}

func sortSi2csi(recs []model.Si2csiRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return bytes.Compare(si2csiKey(recs[i]), si2csiKey(recs[j])) < 0
	})
}
