package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// Pool is one staking-asset/reward-asset configuration. Pools are
// append-only: ids are assigned sequentially and never reused, and no
// pool is ever deleted.
type Pool struct {
	ID                  uint64
	StakingAsset        string
	RewardAsset         string
	TotalStaked         sdkmath.Int
	RewardRatePerSecond sdkmath.Int
	LastSettlementTime  uint64
	AccRewardPerShare   sdkmath.Int
	Active              bool
}

// Clone returns a copy safe to mutate without touching committed state.
// sdkmath.Int operations never mutate their receiver, so a shallow copy
// is sufficient.
func (p *Pool) Clone() *Pool {
	cp := *p
	return &cp
}

type poolRegistry struct {
	pools []*Pool
}

func (r *poolRegistry) get(id uint64) (*Pool, bool) {
	if id >= uint64(len(r.pools)) {
		return nil, false
	}
	return r.pools[id], true
}

func (r *poolRegistry) nextID() uint64 {
	return uint64(len(r.pools))
}

// add appends a new pool. The pool id must equal nextID; the registry is
// strictly sequential.
func (r *poolRegistry) add(p *Pool) {
	r.pools = append(r.pools, p)
}

// put replaces the committed record for an existing pool id.
func (r *poolRegistry) put(p *Pool) {
	r.pools[p.ID] = p
}

func (r *poolRegistry) count() int {
	return len(r.pools)
}
