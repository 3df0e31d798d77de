package ledger

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Precision scales AccRewardPerShare so that integer division keeps
// twelve decimal digits of per-share resolution.
var Precision = sdkmath.NewInt(1_000_000_000_000)

// settle advances the pool's reward accumulator to now.
//
// A non-advancing clock is a no-op, not an error: the external clock is
// monotone but coarse and may repeat the same reading across calls. With
// nothing staked there is nothing to distribute per share, so only the
// settlement time moves. Floor division under-distributes strictly less
// than TotalStaked reward-units of dust per call; that loss is accepted
// and never recovered.
func settle(p *Pool, now uint64) {
	if now <= p.LastSettlementTime {
		return
	}
	if p.TotalStaked.IsZero() {
		p.LastSettlementTime = now
		return
	}
	elapsed := sdkmath.NewIntFromUint64(now - p.LastSettlementTime)
	accrued := elapsed.Mul(p.RewardRatePerSecond)
	p.AccRewardPerShare = p.AccRewardPerShare.Add(accrued.Mul(Precision).Quo(p.TotalStaked))
	p.LastSettlementTime = now
}

// peek returns the accumulator value settle(p, now) would produce,
// without mutating the pool. Used by read-only pending lookups.
func peek(p *Pool, now uint64) sdkmath.Int {
	if now <= p.LastSettlementTime || p.TotalStaked.IsZero() {
		return p.AccRewardPerShare
	}
	elapsed := sdkmath.NewIntFromUint64(now - p.LastSettlementTime)
	accrued := elapsed.Mul(p.RewardRatePerSecond)
	return p.AccRewardPerShare.Add(accrued.Mul(Precision).Quo(p.TotalStaked))
}

// rewardDebt is the portion of the accumulator already accounted for a
// position of the given size. It must be recomputed from the current
// accumulator every time the position amount changes.
func rewardDebt(amount, accPerShare sdkmath.Int) sdkmath.Int {
	return amount.Mul(accPerShare).Quo(Precision)
}

// pendingReward returns the unclaimed reward for a position against the
// given accumulator. A result below zero means the stored reward debt
// was computed against a newer accumulator than the one supplied, which
// is a bookkeeping bug; it is surfaced as an error rather than wrapped.
func pendingReward(pos *Position, accPerShare sdkmath.Int) (sdkmath.Int, error) {
	earned := pos.Amount.Mul(accPerShare).Quo(Precision)
	if earned.LT(pos.RewardDebt) {
		return sdkmath.Int{}, fmt.Errorf(
			"reward debt %s exceeds accrued %s: position bookkeeping corrupted",
			pos.RewardDebt, earned,
		)
	}
	return earned.Sub(pos.RewardDebt), nil
}
