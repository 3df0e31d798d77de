package ledger

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

// CreatePool registers a new pool with the next sequential id. The pool
// starts active with a zero accumulator and the settlement clock at now.
func (l *Ledger) CreatePool(ctx context.Context, caller, stakingAsset, rewardAsset string, ratePerSecond sdkmath.Int) (*Pool, error) {
	if err := l.enter("CreatePool"); err != nil {
		return nil, err
	}
	defer l.exit()

	if err := l.authorize(caller, "CreatePool"); err != nil {
		return nil, err
	}
	if stakingAsset == "" || rewardAsset == "" {
		return nil, &types.ValidationError{Message: "staking and reward asset references must not be empty"}
	}
	if ratePerSecond.IsNil() || !ratePerSecond.IsPositive() {
		return nil, &types.ValidationError{Message: "reward rate must be positive"}
	}

	now := l.clock.Now()

	l.mu.RLock()
	id := l.pools.nextID()
	l.mu.RUnlock()

	pool := &Pool{
		ID:                  id,
		StakingAsset:        stakingAsset,
		RewardAsset:         rewardAsset,
		TotalStaked:         sdkmath.ZeroInt(),
		RewardRatePerSecond: ratePerSecond,
		LastSettlementTime:  now,
		AccRewardPerShare:   sdkmath.ZeroInt(),
		Active:              true,
	}

	if err := l.store.SavePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to persist pool %d: %w", pool.ID, err)
	}

	l.mu.Lock()
	l.pools.add(pool)
	l.mu.Unlock()

	log.Ctx(ctx).Info().
		Uint64("pool_id", pool.ID).
		Str("staking_asset", stakingAsset).
		Str("reward_asset", rewardAsset).
		Str("rate_per_second", ratePerSecond.String()).
		Msg("Pool created")

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventPoolCreated,
		PoolID:    pool.ID,
		Asset:     stakingAsset,
		Timestamp: now,
	})
	return pool.Clone(), nil
}

// UpdateRewardRate settles the pool first so the old rate governs all
// elapsed time up to now, then switches the rate for future time.
func (l *Ledger) UpdateRewardRate(ctx context.Context, caller string, poolID uint64, newRate sdkmath.Int) error {
	if err := l.enter("UpdateRewardRate"); err != nil {
		return err
	}
	defer l.exit()

	if err := l.authorize(caller, "UpdateRewardRate"); err != nil {
		return err
	}
	if newRate.IsNil() || !newRate.IsPositive() {
		return &types.ValidationError{Message: "reward rate must be positive"}
	}

	pool, err := l.clonePool(poolID)
	if err != nil {
		return err
	}

	now := l.clock.Now()
	settle(pool, now)
	pool.RewardRatePerSecond = newRate

	if err := l.store.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("failed to persist pool %d: %w", poolID, err)
	}

	l.mu.Lock()
	l.pools.put(pool)
	l.mu.Unlock()

	log.Ctx(ctx).Info().
		Uint64("pool_id", poolID).
		Str("rate_per_second", newRate.String()).
		Msg("Reward rate updated")

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventPoolUpdated,
		PoolID:    poolID,
		Timestamp: now,
	})
	return nil
}

// TogglePoolStatus flips the active flag. The flag only gates new
// stakes, not accrual, so no settlement happens here.
func (l *Ledger) TogglePoolStatus(ctx context.Context, caller string, poolID uint64) (bool, error) {
	if err := l.enter("TogglePoolStatus"); err != nil {
		return false, err
	}
	defer l.exit()

	if err := l.authorize(caller, "TogglePoolStatus"); err != nil {
		return false, err
	}

	pool, err := l.clonePool(poolID)
	if err != nil {
		return false, err
	}
	pool.Active = !pool.Active

	if err := l.store.SavePool(ctx, pool); err != nil {
		return false, fmt.Errorf("failed to persist pool %d: %w", poolID, err)
	}

	l.mu.Lock()
	l.pools.put(pool)
	l.mu.Unlock()

	log.Ctx(ctx).Info().
		Uint64("pool_id", poolID).
		Bool("active", pool.Active).
		Msg("Pool status toggled")
	return pool.Active, nil
}

// EmergencyWithdraw moves amount of asset out of custody to the caller
// with no ledger accounting and no check against staked principal. This
// is an operator-trust escape hatch: a privileged caller can drain
// funds owed to stakers.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, caller, asset string, amount sdkmath.Int) error {
	if err := l.enter("EmergencyWithdraw"); err != nil {
		return err
	}
	defer l.exit()

	if err := l.authorize(caller, "EmergencyWithdraw"); err != nil {
		return err
	}
	if asset == "" {
		return &types.ValidationError{Message: "asset reference must not be empty"}
	}
	if amount.IsNil() || !amount.IsPositive() {
		return &types.ValidationError{Message: "withdraw amount must be positive"}
	}

	if err := l.bank.TransferOut(ctx, asset, caller, amount); err != nil {
		return &types.TransferFailure{
			Asset:   asset,
			Message: fmt.Sprintf("emergency withdraw of %s %s failed: %s", amount, asset, err),
			Err:     err,
		}
	}

	log.Ctx(ctx).Warn().
		Str("caller", caller).
		Str("asset", asset).
		Str("amount", amount.String()).
		Msg("Emergency withdraw executed")

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventEmergencyWithdrawn,
		Account:   caller,
		Asset:     asset,
		Amount:    amount.String(),
		Timestamp: l.clock.Now(),
	})
	return nil
}

func (l *Ledger) authorize(caller, op string) error {
	if l.auth.IsPrivileged(caller) {
		return nil
	}
	return &types.AuthorizationError{
		Caller:  caller,
		Message: fmt.Sprintf("caller is not privileged to invoke %s", op),
	}
}
