package ledger

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

// Stake settles the pool, pays out the account's pending reward, moves
// amount of the staking asset into custody and grows the position.
// All-or-nothing: a failed transfer or persist leaves committed state
// byte-identical to before the call, and any payout already made is
// clawed back so the aborted call has no bank-side effect either.
func (l *Ledger) Stake(ctx context.Context, poolID uint64, account string, amount sdkmath.Int) error {
	if err := l.enter("Stake"); err != nil {
		return err
	}
	defer l.exit()

	if account == "" {
		return &types.ValidationError{Message: "account must not be empty"}
	}
	if amount.IsNil() || !amount.IsPositive() {
		return &types.ValidationError{Message: "stake amount must be positive"}
	}

	pool, err := l.clonePool(poolID)
	if err != nil {
		return err
	}
	if !pool.Active {
		return &types.InactivePoolError{
			PoolID:  poolID,
			Message: fmt.Sprintf("pool %d is not active", poolID),
		}
	}

	now := l.clock.Now()
	settle(pool, now)

	pos := l.clonePosition(poolID, account)
	pending, err := l.payPending(ctx, pool, pos, account)
	if err != nil {
		return err
	}

	if err := l.bank.TransferIn(ctx, pool.StakingAsset, account, amount); err != nil {
		l.refundPending(ctx, pool, account, pending)
		return &types.TransferFailure{
			Asset:   pool.StakingAsset,
			Message: fmt.Sprintf("failed to move %s of %s into custody: %s", amount, pool.StakingAsset, err),
			Err:     err,
		}
	}

	pos.Amount = pos.Amount.Add(amount)
	pos.LastStakeTime = now
	pos.RewardDebt = rewardDebt(pos.Amount, pool.AccRewardPerShare)
	pool.TotalStaked = pool.TotalStaked.Add(amount)

	if err := l.commit(ctx, pool, account, pos); err != nil {
		if terr := l.bank.TransferOut(ctx, pool.StakingAsset, account, amount); terr != nil {
			log.Ctx(ctx).Error().Err(terr).
				Uint64("pool_id", poolID).
				Str("account", account).
				Str("amount", amount.String()).
				Msg("Failed to return principal after aborted stake")
		}
		l.refundPending(ctx, pool, account, pending)
		return err
	}

	log.Ctx(ctx).Info().
		Uint64("pool_id", poolID).
		Str("account", account).
		Str("amount", amount.String()).
		Str("pending_paid", pending.String()).
		Msg("Stake committed")

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventStaked,
		PoolID:    poolID,
		Account:   account,
		Asset:     pool.StakingAsset,
		Amount:    amount.String(),
		Timestamp: now,
	})
	l.notifyClaim(ctx, pool, account, pending, now)
	return nil
}

// Unstake settles the pool, pays out pending reward, shrinks the
// position and returns the principal. Deactivated pools still allow
// unstake so accounts can always exit. Like Stake, an abort after the
// payout claws the payout back.
func (l *Ledger) Unstake(ctx context.Context, poolID uint64, account string, amount sdkmath.Int) error {
	if err := l.enter("Unstake"); err != nil {
		return err
	}
	defer l.exit()

	if account == "" {
		return &types.ValidationError{Message: "account must not be empty"}
	}
	if amount.IsNil() || !amount.IsPositive() {
		return &types.ValidationError{Message: "unstake amount must be positive"}
	}

	pool, err := l.clonePool(poolID)
	if err != nil {
		return err
	}

	pos := l.clonePosition(poolID, account)
	if pos.Amount.LT(amount) {
		return &types.InsufficientBalanceError{
			PoolID:  poolID,
			Account: account,
			Message: fmt.Sprintf("unstake %s exceeds staked balance %s", amount, pos.Amount),
		}
	}

	now := l.clock.Now()
	settle(pool, now)

	pending, err := l.payPending(ctx, pool, pos, account)
	if err != nil {
		return err
	}

	pos.Amount = pos.Amount.Sub(amount)
	pos.RewardDebt = rewardDebt(pos.Amount, pool.AccRewardPerShare)
	pool.TotalStaked = pool.TotalStaked.Sub(amount)

	if err := l.bank.TransferOut(ctx, pool.StakingAsset, account, amount); err != nil {
		l.refundPending(ctx, pool, account, pending)
		return &types.TransferFailure{
			Asset:   pool.StakingAsset,
			Message: fmt.Sprintf("failed to return %s of %s to %s: %s", amount, pool.StakingAsset, account, err),
			Err:     err,
		}
	}

	if err := l.commit(ctx, pool, account, pos); err != nil {
		if terr := l.bank.TransferIn(ctx, pool.StakingAsset, account, amount); terr != nil {
			log.Ctx(ctx).Error().Err(terr).
				Uint64("pool_id", poolID).
				Str("account", account).
				Str("amount", amount.String()).
				Msg("Failed to reclaim principal after aborted unstake")
		}
		l.refundPending(ctx, pool, account, pending)
		return err
	}

	log.Ctx(ctx).Info().
		Uint64("pool_id", poolID).
		Str("account", account).
		Str("amount", amount.String()).
		Str("pending_paid", pending.String()).
		Msg("Unstake committed")

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventUnstaked,
		PoolID:    poolID,
		Account:   account,
		Asset:     pool.StakingAsset,
		Amount:    amount.String(),
		Timestamp: now,
	})
	l.notifyClaim(ctx, pool, account, pending, now)
	return nil
}

// payPending computes the position's pending reward against the
// just-settled accumulator and pays it out. Returns the amount paid.
func (l *Ledger) payPending(ctx context.Context, pool *Pool, pos *Position, account string) (sdkmath.Int, error) {
	if pos.Amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	pending, err := pendingReward(pos, pool.AccRewardPerShare)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool %d account %s: %w", pool.ID, account, err)
	}
	if !pending.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if err := l.bank.TransferOut(ctx, pool.RewardAsset, account, pending); err != nil {
		return sdkmath.Int{}, &types.TransferFailure{
			Asset:   pool.RewardAsset,
			Message: fmt.Sprintf("failed to pay %s of %s to %s: %s", pending, pool.RewardAsset, account, err),
			Err:     err,
		}
	}
	return pending, nil
}

// refundPending claws back a pending payout after a later step of the
// same operation failed. Without it, retrying the aborted call would
// pay the same accrual twice: committed RewardDebt still predates the
// payout. A failed refund is a funds discrepancy and is logged loudly;
// the original failure is still what the caller sees.
func (l *Ledger) refundPending(ctx context.Context, pool *Pool, account string, pending sdkmath.Int) {
	if !pending.IsPositive() {
		return
	}
	if err := l.bank.TransferIn(ctx, pool.RewardAsset, account, pending); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Uint64("pool_id", pool.ID).
			Str("account", account).
			Str("amount", pending.String()).
			Msg("Failed to claw back reward payout after aborted operation")
	}
}

// commit persists the mutated clones and swaps them into the committed
// maps. The store write happens first so memory and store never diverge.
func (l *Ledger) commit(ctx context.Context, pool *Pool, account string, pos *Position) error {
	if err := l.store.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("failed to persist pool %d: %w", pool.ID, err)
	}
	if err := l.store.SavePosition(ctx, pool.ID, account, pos); err != nil {
		return fmt.Errorf("failed to persist position %d/%s: %w", pool.ID, account, err)
	}

	l.mu.Lock()
	l.pools.put(pool)
	l.positions.put(pool.ID, account, pos)
	l.mu.Unlock()
	return nil
}

func (l *Ledger) notifyClaim(ctx context.Context, pool *Pool, account string, pending sdkmath.Int, now uint64) {
	if !pending.IsPositive() {
		return
	}
	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventRewardsClaimed,
		PoolID:    pool.ID,
		Account:   account,
		Asset:     pool.RewardAsset,
		Amount:    pending.String(),
		Timestamp: now,
	})
}
