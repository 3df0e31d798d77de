package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// Position is one account's staked balance within one pool. Positions
// are created lazily on first stake and persist at Amount zero after a
// full unstake, keeping LastStakeTime and the historical RewardDebt.
type Position struct {
	Amount        sdkmath.Int
	RewardDebt    sdkmath.Int
	LastStakeTime uint64
}

func newPosition() *Position {
	return &Position{
		Amount:     sdkmath.ZeroInt(),
		RewardDebt: sdkmath.ZeroInt(),
	}
}

func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// positionStore is a two-level map keyed by (pool id, account).
type positionStore struct {
	byPool map[uint64]map[string]*Position
}

func newPositionStore() *positionStore {
	return &positionStore{byPool: make(map[uint64]map[string]*Position)}
}

func (s *positionStore) get(poolID uint64, account string) (*Position, bool) {
	accounts, ok := s.byPool[poolID]
	if !ok {
		return nil, false
	}
	pos, ok := accounts[account]
	return pos, ok
}

func (s *positionStore) put(poolID uint64, account string, pos *Position) {
	accounts, ok := s.byPool[poolID]
	if !ok {
		accounts = make(map[string]*Position)
		s.byPool[poolID] = accounts
	}
	accounts[account] = pos
}
