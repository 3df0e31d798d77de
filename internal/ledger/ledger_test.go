package ledger_test

import (
	"context"
	"fmt"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
	"github.com/babylonlabs-io/staking-rewards-ledger/testutil"
)

const (
	operator     = "operator"
	stakingAsset = "ustake"
	rewardAsset  = "ureward"
)

type fixture struct {
	ledger *ledger.Ledger
	bank   *testutil.FakeBank
	clock  *testutil.ManualClock
	store  *testutil.MemStore
	sink   *testutil.CaptureSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		bank:  &testutil.FakeBank{},
		clock: testutil.NewManualClock(1_000),
		store: testutil.NewMemStore(),
		sink:  &testutil.CaptureSink{},
	}
	f.ledger = ledger.New(f.bank, testutil.AllowList{Operators: []string{operator}}, f.clock, f.store, f.sink)
	return f
}

// createPool registers a pool with known assets and the given rate.
func (f *fixture) createPool(t *testing.T, rate int64) *ledger.Pool {
	t.Helper()

	pool, err := f.ledger.CreatePool(context.Background(), operator, stakingAsset, rewardAsset, sdkmath.NewInt(rate))
	require.NoError(t, err)
	return pool
}

func TestStakeUnstakeRoundTrip(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	account := testutil.RandomAccount()
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, account, sdkmath.NewInt(100)))
	require.NoError(t, f.ledger.Unstake(ctx, pool.ID, account, sdkmath.NewInt(100)))

	// no time passed, so exactly one transfer each way and zero reward
	require.Len(t, f.bank.Transfers, 2)
	assert.Equal(t, "in", f.bank.Transfers[0].Direction)
	assert.Equal(t, "out", f.bank.Transfers[1].Direction)
	assert.Equal(t, stakingAsset, f.bank.Transfers[1].Asset)
	assert.True(t, f.bank.Paid(rewardAsset, account).IsZero())

	pos, err := f.ledger.GetUserInfo(pool.ID, account)
	require.NoError(t, err)
	assert.True(t, pos.Amount.IsZero())

	got, err := f.ledger.GetPoolInfo(pool.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalStaked.IsZero())
}

func TestProportionalAccrual(t *testing.T) {
	// rate 10/s. A stakes 100 at t0, B stakes 50 at t0+50. By t0+100
	// A has earned 500 alone plus 333 of the shared window, B 166.
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))

	f.clock.Advance(50)
	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "bob", sdkmath.NewInt(50)))

	got, err := f.ledger.GetPoolInfo(pool.ID)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(5_000_000_000_000), got.AccRewardPerShare)
	assert.Equal(t, sdkmath.NewInt(150), got.TotalStaked)

	bobPos, err := f.ledger.GetUserInfo(pool.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(250), bobPos.RewardDebt)

	pending, err := f.ledger.PendingRewards(pool.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), pending)

	f.clock.Advance(50)

	pending, err = f.ledger.PendingRewards(pool.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(833), pending)

	pending, err = f.ledger.PendingRewards(pool.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(166), pending)

	// exiting pays the accrued reward alongside the principal
	require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	assert.Equal(t, sdkmath.NewInt(833), f.bank.Paid(rewardAsset, "alice"))
	assert.Equal(t, sdkmath.NewInt(100), f.bank.Paid(stakingAsset, "alice"))

	claims := f.sink.ByType(types.EventRewardsClaimed)
	require.Len(t, claims, 1)
	assert.Equal(t, "833", claims[0].Amount)
	assert.Equal(t, "alice", claims[0].Account)
}

func TestStakePaysPendingBeforeGrowing(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	account := testutil.RandomAccount()
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, account, sdkmath.NewInt(100)))
	f.clock.Advance(50)
	require.NoError(t, f.ledger.Stake(ctx, pool.ID, account, sdkmath.NewInt(100)))

	assert.Equal(t, sdkmath.NewInt(500), f.bank.Paid(rewardAsset, account))

	// debt resets against the new balance so nothing pends twice
	pending, err := f.ledger.PendingRewards(pool.ID, account)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	pos, err := f.ledger.GetUserInfo(pool.ID, account)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(200), pos.Amount)
	assert.Equal(t, uint64(1_050), pos.LastStakeTime)
}

func TestStakeValidation(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	t.Run("empty account", func(t *testing.T) {
		err := f.ledger.Stake(ctx, pool.ID, "", sdkmath.NewInt(1))
		assert.True(t, types.IsValidationError(err))
	})

	t.Run("zero amount", func(t *testing.T) {
		err := f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.ZeroInt())
		assert.True(t, types.IsValidationError(err))
	})

	t.Run("negative amount", func(t *testing.T) {
		err := f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(-5))
		assert.True(t, types.IsValidationError(err))
	})

	t.Run("unknown pool", func(t *testing.T) {
		err := f.ledger.Stake(ctx, 42, "alice", sdkmath.NewInt(1))
		assert.True(t, types.IsValidationError(err))
	})

	assert.Empty(t, f.bank.Transfers)
}

func TestUnstakeExceedsBalance(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))

	err := f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(101))
	assert.True(t, types.IsInsufficientBalanceError(err))

	err = f.ledger.Unstake(ctx, pool.ID, "nobody", sdkmath.NewInt(1))
	assert.True(t, types.IsInsufficientBalanceError(err))
}

func TestInactivePool(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))

	active, err := f.ledger.TogglePoolStatus(ctx, operator, pool.ID)
	require.NoError(t, err)
	require.False(t, active)

	t.Run("stake is rejected", func(t *testing.T) {
		err := f.ledger.Stake(ctx, pool.ID, "bob", sdkmath.NewInt(50))
		assert.True(t, types.IsInactivePoolError(err))
	})

	t.Run("accrual continues", func(t *testing.T) {
		f.clock.Advance(10)
		pending, err := f.ledger.PendingRewards(pool.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(100), pending)
	})

	t.Run("unstake still exits", func(t *testing.T) {
		require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		assert.Equal(t, sdkmath.NewInt(100), f.bank.Paid(rewardAsset, "alice"))
	})
}

func TestTransferFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	t.Run("stake transfer fails", func(t *testing.T) {
		f.bank.FailTransferIn = true
		err := f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
		require.True(t, types.IsTransferFailure(err))
		f.bank.FailTransferIn = false

		pos, err := f.ledger.GetUserInfo(pool.ID, "alice")
		require.NoError(t, err)
		assert.True(t, pos.Amount.IsZero())

		got, err := f.ledger.GetPoolInfo(pool.ID)
		require.NoError(t, err)
		assert.True(t, got.TotalStaked.IsZero())
		assert.Empty(t, f.store.Positions)
	})

	t.Run("reward payout fails", func(t *testing.T) {
		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		f.clock.Advance(50)

		before, err := f.ledger.GetPoolInfo(pool.ID)
		require.NoError(t, err)

		f.bank.FailTransferOut = true
		err = f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
		require.True(t, types.IsTransferFailure(err))
		f.bank.FailTransferOut = false

		after, err := f.ledger.GetPoolInfo(pool.ID)
		require.NoError(t, err)
		assert.Equal(t, before.AccRewardPerShare, after.AccRewardPerShare)
		assert.Equal(t, before.LastSettlementTime, after.LastSettlementTime)
		assert.Equal(t, before.TotalStaked, after.TotalStaked)

		// the position is intact, so retrying succeeds in full
		require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		assert.Equal(t, sdkmath.NewInt(500), f.bank.Paid(rewardAsset, "alice"))
	})
}

func TestAbortedStakeClawsBackPayout(t *testing.T) {
	// 50s at rate 10 accrue 500. A second stake whose principal
	// transfer fails aborts after paying that pending; the payout must
	// come back, or retrying would pay the same 500 twice.
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	f.clock.Advance(50)

	f.bank.OnTransferIn = func(ctx context.Context, asset, from string, amount sdkmath.Int) error {
		if asset == stakingAsset {
			return fmt.Errorf("transfer in rejected")
		}
		return nil
	}
	err := f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
	require.True(t, types.IsTransferFailure(err))
	f.bank.OnTransferIn = nil

	assert.True(t, f.bank.Net(rewardAsset, "alice").IsZero())

	// the retry pays the accrual exactly once
	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	assert.Equal(t, sdkmath.NewInt(500), f.bank.Net(rewardAsset, "alice"))
}

func TestAbortedUnstakeClawsBackPayout(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	f.clock.Advance(50)

	// reward payout succeeds, the principal return then fails
	f.bank.OnTransferOut = func(ctx context.Context, asset, to string, amount sdkmath.Int) error {
		if asset == stakingAsset {
			return fmt.Errorf("transfer out rejected")
		}
		return nil
	}
	err := f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
	require.True(t, types.IsTransferFailure(err))
	f.bank.OnTransferOut = nil

	assert.True(t, f.bank.Net(rewardAsset, "alice").IsZero())

	require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	assert.Equal(t, sdkmath.NewInt(500), f.bank.Net(rewardAsset, "alice"))
	assert.True(t, f.bank.Net(stakingAsset, "alice").IsZero())
}

func TestCommitFailureClawsBackTransfers(t *testing.T) {
	t.Run("stake", func(t *testing.T) {
		f := newFixture(t)
		pool := f.createPool(t, 10)
		ctx := context.Background()

		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		f.clock.Advance(50)

		f.store.FailSavePool = true
		err := f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
		require.Error(t, err)
		f.store.FailSavePool = false

		// both the payout and the principal debit were undone
		assert.True(t, f.bank.Net(rewardAsset, "alice").IsZero())
		assert.Equal(t, sdkmath.NewInt(-100), f.bank.Net(stakingAsset, "alice"))

		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		assert.Equal(t, sdkmath.NewInt(500), f.bank.Net(rewardAsset, "alice"))
	})

	t.Run("unstake", func(t *testing.T) {
		f := newFixture(t)
		pool := f.createPool(t, 10)
		ctx := context.Background()

		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		f.clock.Advance(50)

		f.store.FailSavePosition = true
		err := f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
		require.Error(t, err)
		f.store.FailSavePosition = false

		assert.True(t, f.bank.Net(rewardAsset, "alice").IsZero())
		assert.Equal(t, sdkmath.NewInt(-100), f.bank.Net(stakingAsset, "alice"))

		require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		assert.Equal(t, sdkmath.NewInt(500), f.bank.Net(rewardAsset, "alice"))
		assert.True(t, f.bank.Net(stakingAsset, "alice").IsZero())
	})
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	f.store.FailSavePool = true
	err := f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100))
	require.Error(t, err)
	f.store.FailSavePool = false

	pos, err := f.ledger.GetUserInfo(pool.ID, "alice")
	require.NoError(t, err)
	assert.True(t, pos.Amount.IsZero())

	got, err := f.ledger.GetPoolInfo(pool.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalStaked.IsZero())
	assert.Empty(t, f.store.Positions)
}

func TestReentrantCallRejected(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	f.clock.Advance(50)

	// the reward payout calls back into the ledger mid-unstake
	var nestedErr error
	f.bank.OnTransferOut = func(ctx context.Context, asset, to string, amount sdkmath.Int) error {
		if asset == rewardAsset {
			nestedErr = f.ledger.Stake(ctx, pool.ID, "mallory", sdkmath.NewInt(1))
		}
		return nil
	}

	require.NoError(t, f.ledger.Unstake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))

	require.Error(t, nestedErr)
	assert.True(t, types.IsReentrancyError(nestedErr))

	// outer call committed exactly as a non-reentrant run would
	assert.Equal(t, sdkmath.NewInt(500), f.bank.Paid(rewardAsset, "alice"))
	pos, err := f.ledger.GetUserInfo(pool.ID, "mallory")
	require.NoError(t, err)
	assert.True(t, pos.Amount.IsZero())
}

func TestUpdatePool(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	f.clock.Advance(50)

	require.NoError(t, f.ledger.UpdatePool(ctx, pool.ID))

	got, err := f.ledger.GetPoolInfo(pool.ID)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(5_000_000_000_000), got.AccRewardPerShare)
	assert.Equal(t, uint64(1_050), got.LastSettlementTime)

	// settlement moves no funds
	require.Len(t, f.bank.Transfers, 1)

	err = f.ledger.UpdatePool(ctx, 42)
	assert.True(t, types.IsValidationError(err))
}

func TestPendingRewardsIsReadOnly(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 10)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
	f.clock.Advance(50)

	for i := 0; i < 3; i++ {
		pending, err := f.ledger.PendingRewards(pool.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(500), pending)
	}

	got, err := f.ledger.GetPoolInfo(pool.ID)
	require.NoError(t, err)
	assert.True(t, got.AccRewardPerShare.IsZero())
	assert.Equal(t, uint64(1_000), got.LastSettlementTime)

	pending, err := f.ledger.PendingRewards(pool.ID, "nobody")
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("restores committed state", func(t *testing.T) {
		f := newFixture(t)
		pool := f.createPool(t, 10)
		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "alice", sdkmath.NewInt(100)))
		f.clock.Advance(50)
		require.NoError(t, f.ledger.Stake(ctx, pool.ID, "bob", sdkmath.NewInt(50)))

		restarted := ledger.New(f.bank, testutil.AllowAll{}, f.clock, f.store, f.sink)
		require.NoError(t, restarted.Bootstrap(ctx))

		assert.Equal(t, 1, restarted.PoolCount())

		pending, err := restarted.PendingRewards(pool.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(500), pending)

		pos, err := restarted.GetUserInfo(pool.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(50), pos.Amount)
		assert.Equal(t, sdkmath.NewInt(250), pos.RewardDebt)
	})

	t.Run("rejects non-sequential pool ids", func(t *testing.T) {
		store := testutil.NewMemStore()
		require.NoError(t, store.SavePool(ctx, &ledger.Pool{
			ID:                  3,
			StakingAsset:        stakingAsset,
			RewardAsset:         rewardAsset,
			TotalStaked:         sdkmath.ZeroInt(),
			RewardRatePerSecond: sdkmath.NewInt(1),
			AccRewardPerShare:   sdkmath.ZeroInt(),
			Active:              true,
		}))

		l := ledger.New(&testutil.FakeBank{}, testutil.AllowAll{}, testutil.NewManualClock(0), store, nil)
		require.Error(t, l.Bootstrap(ctx))
	})

	t.Run("rejects orphan positions", func(t *testing.T) {
		store := testutil.NewMemStore()
		require.NoError(t, store.SavePosition(ctx, 7, "alice", &ledger.Position{
			Amount:     sdkmath.NewInt(1),
			RewardDebt: sdkmath.ZeroInt(),
		}))

		l := ledger.New(&testutil.FakeBank{}, testutil.AllowAll{}, testutil.NewManualClock(0), store, nil)
		require.Error(t, l.Bootstrap(ctx))
	})
}

func TestRewardConservation(t *testing.T) {
	// over any schedule of stakes and exits, rewards paid out never
	// exceed rate * elapsed while stake was non-zero
	f := newFixture(t)
	pool := f.createPool(t, 7)
	ctx := context.Background()

	accounts := []string{"a", "b", "c"}
	stakes := []int64{13, 29, 51}
	for i, acct := range accounts {
		require.NoError(t, f.ledger.Stake(ctx, pool.ID, acct, sdkmath.NewInt(stakes[i])))
		f.clock.Advance(11)
	}
	for i, acct := range accounts {
		require.NoError(t, f.ledger.Unstake(ctx, pool.ID, acct, sdkmath.NewInt(stakes[i])))
		f.clock.Advance(17)
	}

	totalPaid := sdkmath.ZeroInt()
	for _, acct := range accounts {
		totalPaid = totalPaid.Add(f.bank.Paid(rewardAsset, acct))
	}

	// stake was non-zero from t0 until the last unstake: 67 seconds
	budget := sdkmath.NewInt(7 * 67)
	assert.True(t, totalPaid.LTE(budget), "paid %s exceeds budget %s", totalPaid, budget)

	// truncation dust stays bounded: within len(accounts) units per window
	slack := budget.Sub(totalPaid)
	assert.True(t, slack.LT(sdkmath.NewInt(20)), "slack %s too large", slack)
}
