package model

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
)

const PoolCollection = "pools"

// PoolDocument mirrors ledger.Pool in Mongo. Amounts are decimal
// strings: the accumulator is unbounded and does not fit fixed-width
// BSON integers.
type PoolDocument struct {
	ID                  uint64 `bson:"_id"`
	StakingAsset        string `bson:"staking_asset"`
	RewardAsset         string `bson:"reward_asset"`
	TotalStaked         string `bson:"total_staked"`
	RewardRatePerSecond string `bson:"reward_rate_per_second"`
	LastSettlementTime  uint64 `bson:"last_settlement_time"`
	AccRewardPerShare   string `bson:"acc_reward_per_share"`
	Active              bool   `bson:"active"`
}

func NewPoolDocument(p *ledger.Pool) *PoolDocument {
	return &PoolDocument{
		ID:                  p.ID,
		StakingAsset:        p.StakingAsset,
		RewardAsset:         p.RewardAsset,
		TotalStaked:         p.TotalStaked.String(),
		RewardRatePerSecond: p.RewardRatePerSecond.String(),
		LastSettlementTime:  p.LastSettlementTime,
		AccRewardPerShare:   p.AccRewardPerShare.String(),
		Active:              p.Active,
	}
}

func (d *PoolDocument) ToPool() (*ledger.Pool, error) {
	totalStaked, err := parseInt(d.TotalStaked, "total_staked")
	if err != nil {
		return nil, fmt.Errorf("pool %d: %w", d.ID, err)
	}
	rate, err := parseInt(d.RewardRatePerSecond, "reward_rate_per_second")
	if err != nil {
		return nil, fmt.Errorf("pool %d: %w", d.ID, err)
	}
	acc, err := parseInt(d.AccRewardPerShare, "acc_reward_per_share")
	if err != nil {
		return nil, fmt.Errorf("pool %d: %w", d.ID, err)
	}

	return &ledger.Pool{
		ID:                  d.ID,
		StakingAsset:        d.StakingAsset,
		RewardAsset:         d.RewardAsset,
		TotalStaked:         totalStaked,
		RewardRatePerSecond: rate,
		LastSettlementTime:  d.LastSettlementTime,
		AccRewardPerShare:   acc,
		Active:              d.Active,
	}, nil
}

func parseInt(s, field string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("field %s holds malformed integer %q", field, s)
	}
	return v, nil
}
