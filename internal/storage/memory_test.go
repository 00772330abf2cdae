package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

const fixturesYAML = `
bioseq_info:
  - accession: AB123456
    version: 1
    seq_id_type: 5
    gi: 12345
    name: ABNAME
    seq_ids:
      - type: 12
        value: "12345"
    length: 1200
    sat: 4
    sat_key: 100
  - accession: AB123456
    version: 2
    seq_id_type: 5
    gi: 12346
    sat: 4
    sat_key: 101
si2csi:
  - sec_seq_id: "12345"
    sec_seq_id_type: 12
    accession: AB123456
    version: 1
    seq_id_type: 5
    gi: 12345
blob_props:
  - blob_id: {sat: 4, sat_key: 100}
    last_modified: 10
    n_chunks: 2
  - blob_id: {sat: 4, sat_key: 100}
    last_modified: 20
    n_chunks: 2
blob_chunks:
  - blob_id: {sat: 4, sat_key: 100}
    index: 1
    data: "GATTACA"
  - blob_id: {sat: 4, sat_key: 100}
    index: 0
    data: "ACGT"
`

func loadedStore(t *testing.T) *MemoryStore {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixturesYAML), 0o644))

	f, err := LoadFixtures(path)
	require.NoError(t, err)

	s := NewMemoryStore()
	s.Load(f)
	return s
}

func TestMemoryStore_BioseqInfo(t *testing.T) {
	s := loadedStore(t)
	ctx := context.Background()

	all, err := s.QueryBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []model.SeqIDEntry{{Type: model.SeqIDTypeGI, Value: "12345"}}, all[0].SeqIDs)

	k := model.NewBioseqKey("AB123456")
	k.Version = 2
	v2, err := s.QueryBioseqInfo(ctx, k)
	require.NoError(t, err)
	require.Len(t, v2, 1)
	assert.Equal(t, int64(12346), v2[0].GI)

	all[0].SeqIDs[0].Value = "mutated"
	again, _ := s.QueryBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
	assert.Equal(t, "12345", again[0].SeqIDs[0].Value, "results never alias stored data")

	assert.Equal(t, int64(3), s.Queries())
}

func TestMemoryStore_Si2csi(t *testing.T) {
	s := loadedStore(t)

	got, err := s.QuerySi2csi(context.Background(), model.Si2csiKey{SecSeqID: "12345", SecSeqIDType: model.SeqIDTypeGI})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AB123456", got[0].Accession)
}

func TestMemoryStore_Blobs(t *testing.T) {
	s := loadedStore(t)
	ctx := context.Background()
	id := model.BlobID{Sat: 4, SatKey: 100}

	props, err := s.QueryBlobProps(ctx, id)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, int64(20), props[0].LastModified)

	chunks, err := s.QueryBlobChunks(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ACGT", string(chunks[0].Data))
	assert.Equal(t, "GATTACA", string(chunks[1].Data))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.QueryBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFixtures_Invalid(t *testing.T) {
	_, err := ParseFixtures([]byte("bioseq_info:\n  - version: 1\n"))
	assert.Error(t, err)

	_, err = ParseFixtures([]byte("si2csi: [not, a, record"))
	assert.Error(t, err)
}
