//go:build integration

package db_test

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/testutil"
)

func TestPositionRoundTrip(t *testing.T) {
	ctx := context.Background()
	account := testutil.RandomAccount()

	pos := &ledger.Position{
		Amount:        sdkmath.NewInt(12_345),
		RewardDebt:    sdkmath.NewInt(678),
		LastStakeTime: 1_700_000_123,
	}
	require.NoError(t, testDB.SavePosition(ctx, 300, account, pos))

	records, err := testDB.GetPositionsByPool(ctx, 300)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, account, records[0].Account)
	assert.Equal(t, uint64(300), records[0].PoolID)
	assert.Equal(t, *pos, records[0].Position)

	// fully unstaked positions stay stored at amount zero
	pos.Amount = sdkmath.ZeroInt()
	pos.RewardDebt = sdkmath.ZeroInt()
	require.NoError(t, testDB.SavePosition(ctx, 300, account, pos))

	records, err = testDB.GetPositionsByPool(ctx, 300)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Position.Amount.IsZero())
}

func TestGetPositionsByPoolSortedByAccount(t *testing.T) {
	ctx := context.Background()

	for _, account := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, testDB.SavePosition(ctx, 301, account, &ledger.Position{
			Amount:     sdkmath.NewInt(1),
			RewardDebt: sdkmath.ZeroInt(),
		}))
	}

	records, err := testDB.GetPositionsByPool(ctx, 301)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alice", records[0].Account)
	assert.Equal(t, "bob", records[1].Account)
	assert.Equal(t, "charlie", records[2].Account)
}

func TestGetPositionsSpansPools(t *testing.T) {
	ctx := context.Background()
	account := testutil.RandomAccount()

	for _, poolID := range []uint64{310, 311} {
		require.NoError(t, testDB.SavePosition(ctx, poolID, account, &ledger.Position{
			Amount:     sdkmath.NewInt(5),
			RewardDebt: sdkmath.ZeroInt(),
		}))
	}

	records, err := testDB.GetPositions(ctx)
	require.NoError(t, err)

	var seen int
	for _, rec := range records {
		if rec.Account == account {
			seen++
		}
	}
	assert.Equal(t, 2, seen)
}
