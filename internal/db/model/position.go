package model

import (
	"fmt"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
)

const PositionCollection = "positions"

// PositionDocument mirrors one (pool, account) position. The _id is the
// natural key "<pool id>:<account>" so upserts stay single-document.
type PositionDocument struct {
	ID            string `bson:"_id"`
	PoolID        uint64 `bson:"pool_id"`
	Account       string `bson:"account"`
	Amount        string `bson:"amount"`
	RewardDebt    string `bson:"reward_debt"`
	LastStakeTime uint64 `bson:"last_stake_time"`
}

func PositionID(poolID uint64, account string) string {
	return fmt.Sprintf("%d:%s", poolID, account)
}

func NewPositionDocument(poolID uint64, account string, pos *ledger.Position) *PositionDocument {
	return &PositionDocument{
		ID:            PositionID(poolID, account),
		PoolID:        poolID,
		Account:       account,
		Amount:        pos.Amount.String(),
		RewardDebt:    pos.RewardDebt.String(),
		LastStakeTime: pos.LastStakeTime,
	}
}

func (d *PositionDocument) ToRecord() (ledger.PositionRecord, error) {
	amount, err := parseInt(d.Amount, "amount")
	if err != nil {
		return ledger.PositionRecord{}, fmt.Errorf("position %s: %w", d.ID, err)
	}
	debt, err := parseInt(d.RewardDebt, "reward_debt")
	if err != nil {
		return ledger.PositionRecord{}, fmt.Errorf("position %s: %w", d.ID, err)
	}

	return ledger.PositionRecord{
		PoolID:  d.PoolID,
		Account: d.Account,
		Position: ledger.Position{
			Amount:        amount,
			RewardDebt:    debt,
			LastStakeTime: d.LastStakeTime,
		},
	}, nil
}
