package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

func tiers(t *testing.T) map[string]Tier {
	bolt, err := OpenBoltTier(filepath.Join(t.TempDir(), "cache", "seqgate.boltdb"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Tier{
		"bolt":   bolt,
		"memory": NewMemoryTier(),
	}
}

func TestTier_BioseqInfo(t *testing.T) {
	ctx := context.Background()

	for name, tier := range tiers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tier.Ping(ctx))
			require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB123456", 1, model.SeqIDTypeGenbank, 10)))
			require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB123456", 2, model.SeqIDTypeGenbank, 11)))
			require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB1234567", 1, model.SeqIDTypeGenbank, 12)))

			all, err := tier.FetchBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
			require.NoError(t, err)
			require.Len(t, all, 2, "prefix scan must not leak into longer accessions")
			assert.Equal(t, int16(1), all[0].Version)
			assert.Equal(t, int16(2), all[1].Version)

			v2, err := tier.FetchBioseqInfo(ctx, key("AB123456", 2, model.SeqIDTypeGenbank))
			require.NoError(t, err)
			require.Len(t, v2, 1)
			assert.Equal(t, int64(11), v2[0].GI)

			none, err := tier.FetchBioseqInfo(ctx, key("AB123456", 2, model.SeqIDTypeEMBL))
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestTier_Si2csi(t *testing.T) {
	ctx := context.Background()
	m := model.Si2csiRecord{SecSeqID: "12345", SecSeqIDType: model.SeqIDTypeGI, Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank, GI: 12345}

	for name, tier := range tiers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tier.PutSi2csi(ctx, m))
			require.NoError(t, tier.PutSi2csi(ctx, m))

			got, err := tier.FetchSi2csi(ctx, model.Si2csiKey{SecSeqID: "12345", SecSeqIDType: model.SeqIDTypeUnknown})
			require.NoError(t, err)
			assert.Equal(t, []model.Si2csiRecord{m}, got)

			got, err = tier.FetchSi2csi(ctx, model.Si2csiKey{SecSeqID: "12345", SecSeqIDType: model.SeqIDTypeLocal})
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestBoltTier_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seqgate.boltdb")

	tier, err := OpenBoltTier(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB123456", 1, model.SeqIDTypeGenbank, 10)))
	require.NoError(t, tier.Close())

	tier, err = OpenBoltTier(path, zap.NewNop())
	require.NoError(t, err)
	defer tier.Close()

	got, err := tier.FetchBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
