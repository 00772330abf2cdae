package cache

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Runs against a live redis when SEQGATE_TEST_REDIS_HOST is set
func TestRedisTier(t *testing.T) {
	host := os.Getenv("SEQGATE_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("SEQGATE_TEST_REDIS_HOST not set")
	}
	port := 6379
	if p := os.Getenv("SEQGATE_TEST_REDIS_PORT"); p != "" {
		port, _ = strconv.Atoi(p)
	}

	tier, err := NewRedisTier(host, port, "", 15, zap.NewNop())
	require.NoError(t, err)
	defer tier.Close()

	ctx := context.Background()
	require.NoError(t, tier.client.FlushDB(ctx).Err())
	require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB123456", 2, model.SeqIDTypeGenbank, 11)))
	require.NoError(t, tier.PutBioseqInfo(ctx, rec("AB123456", 1, model.SeqIDTypeGenbank, 10)))

	got, err := tier.FetchBioseqInfo(ctx, model.NewBioseqKey("AB123456"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int16(1), got[0].Version)
}
