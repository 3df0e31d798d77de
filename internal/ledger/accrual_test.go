package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(rate int64) *Pool {
	return &Pool{
		ID:                  0,
		StakingAsset:        "stk",
		RewardAsset:         "rwd",
		TotalStaked:         sdkmath.ZeroInt(),
		RewardRatePerSecond: sdkmath.NewInt(rate),
		LastSettlementTime:  1_000,
		AccRewardPerShare:   sdkmath.ZeroInt(),
		Active:              true,
	}
}

func TestSettle(t *testing.T) {
	t.Run("zero stake advances clock only", func(t *testing.T) {
		pool := testPool(10)
		settle(pool, 1_100)

		assert.Equal(t, uint64(1_100), pool.LastSettlementTime)
		assert.True(t, pool.AccRewardPerShare.IsZero())
	})

	t.Run("non-advancing clock is a no-op", func(t *testing.T) {
		pool := testPool(10)
		pool.TotalStaked = sdkmath.NewInt(100)

		settle(pool, 1_000)
		assert.Equal(t, uint64(1_000), pool.LastSettlementTime)
		assert.True(t, pool.AccRewardPerShare.IsZero())
	})

	t.Run("accumulates per share", func(t *testing.T) {
		// rate = 10/s, 100 staked, 50s elapsed: 50*10*1e12/100 = 5e12
		pool := testPool(10)
		pool.TotalStaked = sdkmath.NewInt(100)

		settle(pool, 1_050)

		require.Equal(t, uint64(1_050), pool.LastSettlementTime)
		assert.Equal(t, sdkmath.NewInt(5_000_000_000_000), pool.AccRewardPerShare)
	})

	t.Run("idempotent at fixed timestamp", func(t *testing.T) {
		pool := testPool(10)
		pool.TotalStaked = sdkmath.NewInt(100)

		settle(pool, 1_050)
		accAfterFirst := pool.AccRewardPerShare

		settle(pool, 1_050)
		assert.Equal(t, accAfterFirst, pool.AccRewardPerShare)
		assert.Equal(t, uint64(1_050), pool.LastSettlementTime)
	})

	t.Run("floor division truncates", func(t *testing.T) {
		// 50s * 10/s = 500 accrued over 150 staked:
		// 500*1e12/150 floors to 3_333_333_333_333
		pool := testPool(10)
		pool.TotalStaked = sdkmath.NewInt(150)

		settle(pool, 1_050)
		assert.Equal(t, sdkmath.NewInt(3_333_333_333_333), pool.AccRewardPerShare)
	})

	t.Run("monotonic across settlements", func(t *testing.T) {
		pool := testPool(7)
		pool.TotalStaked = sdkmath.NewInt(13)

		prev := pool.AccRewardPerShare
		for now := uint64(1_001); now <= 1_100; now += 7 {
			settle(pool, now)
			assert.True(t, pool.AccRewardPerShare.GTE(prev))
			prev = pool.AccRewardPerShare
		}
	})
}

func TestPeek(t *testing.T) {
	t.Run("matches settle without mutating", func(t *testing.T) {
		pool := testPool(10)
		pool.TotalStaked = sdkmath.NewInt(100)

		peeked := peek(pool, 1_050)
		assert.True(t, pool.AccRewardPerShare.IsZero())
		assert.Equal(t, uint64(1_000), pool.LastSettlementTime)

		settle(pool, 1_050)
		assert.Equal(t, peeked, pool.AccRewardPerShare)
	})

	t.Run("zero stake returns current accumulator", func(t *testing.T) {
		pool := testPool(10)
		pool.AccRewardPerShare = sdkmath.NewInt(42)

		assert.Equal(t, sdkmath.NewInt(42), peek(pool, 2_000))
	})
}

func TestPendingReward(t *testing.T) {
	t.Run("subtracts reward debt", func(t *testing.T) {
		pos := &Position{
			Amount:     sdkmath.NewInt(100),
			RewardDebt: sdkmath.NewInt(200),
		}

		pending, err := pendingReward(pos, sdkmath.NewInt(5_000_000_000_000))
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(300), pending)
	})

	t.Run("underflow fails loudly", func(t *testing.T) {
		pos := &Position{
			Amount:     sdkmath.NewInt(100),
			RewardDebt: sdkmath.NewInt(501),
		}

		_, err := pendingReward(pos, sdkmath.NewInt(5_000_000_000_000))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bookkeeping corrupted")
	})
}

func TestRewardDebt(t *testing.T) {
	// 50 staked against acc 5e12: debt = 50*5e12/1e12 = 250
	debt := rewardDebt(sdkmath.NewInt(50), sdkmath.NewInt(5_000_000_000_000))
	assert.Equal(t, sdkmath.NewInt(250), debt)
}
