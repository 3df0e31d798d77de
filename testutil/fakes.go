// Package testutil holds test doubles for the ledger collaborators.
package testutil

import (
	"context"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

// ManualClock is a hand-driven clock for deterministic accrual tests.
type ManualClock struct {
	Time uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{Time: start}
}

func (c *ManualClock) Now() uint64 {
	return c.Time
}

func (c *ManualClock) Advance(seconds uint64) {
	c.Time += seconds
}

// Transfer records one bank movement.
type Transfer struct {
	Direction string // "in" or "out"
	Asset     string
	Account   string
	Amount    sdkmath.Int
}

// FakeBank records transfers and optionally fails or runs a callback,
// which lets tests drive transfer failures and reentrant calls.
type FakeBank struct {
	Transfers       []Transfer
	FailTransferIn  bool
	FailTransferOut bool

	// OnTransferOut, when set, runs before the transfer is recorded.
	// Returning an error fails the transfer.
	OnTransferOut func(ctx context.Context, asset, to string, amount sdkmath.Int) error
	OnTransferIn  func(ctx context.Context, asset, from string, amount sdkmath.Int) error
}

func (b *FakeBank) TransferIn(ctx context.Context, asset, from string, amount sdkmath.Int) error {
	if b.OnTransferIn != nil {
		if err := b.OnTransferIn(ctx, asset, from, amount); err != nil {
			return err
		}
	}
	if b.FailTransferIn {
		return fmt.Errorf("transfer in rejected")
	}
	b.Transfers = append(b.Transfers, Transfer{Direction: "in", Asset: asset, Account: from, Amount: amount})
	return nil
}

func (b *FakeBank) TransferOut(ctx context.Context, asset, to string, amount sdkmath.Int) error {
	if b.OnTransferOut != nil {
		if err := b.OnTransferOut(ctx, asset, to, amount); err != nil {
			return err
		}
	}
	if b.FailTransferOut {
		return fmt.Errorf("transfer out rejected")
	}
	b.Transfers = append(b.Transfers, Transfer{Direction: "out", Asset: asset, Account: to, Amount: amount})
	return nil
}

// Paid sums the outbound transfers of one asset to one account.
func (b *FakeBank) Paid(asset, account string) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, tr := range b.Transfers {
		if tr.Direction == "out" && tr.Asset == asset && tr.Account == account {
			total = total.Add(tr.Amount)
		}
	}
	return total
}

// Net sums the outbound minus the inbound transfers of one asset for
// one account: what the account actually gained from the bank's side,
// clawbacks included.
func (b *FakeBank) Net(asset, account string) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, tr := range b.Transfers {
		if tr.Asset != asset || tr.Account != account {
			continue
		}
		if tr.Direction == "out" {
			total = total.Add(tr.Amount)
		} else {
			total = total.Sub(tr.Amount)
		}
	}
	return total
}

// AllowAll authorizes every caller.
type AllowAll struct{}

func (AllowAll) IsPrivileged(string) bool { return true }

// AllowList authorizes only the listed callers.
type AllowList struct {
	Operators []string
}

func (a AllowList) IsPrivileged(caller string) bool {
	for _, op := range a.Operators {
		if op == caller {
			return true
		}
	}
	return false
}

type positionKey struct {
	poolID  uint64
	account string
}

// MemStore is an in-memory ledger.Store, cloning on write so committed
// ledger state and stored state cannot alias each other.
type MemStore struct {
	Pools     map[uint64]*ledger.Pool
	Positions map[positionKey]*ledger.Position

	FailSavePool     bool
	FailSavePosition bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		Pools:     make(map[uint64]*ledger.Pool),
		Positions: make(map[positionKey]*ledger.Position),
	}
}

func (s *MemStore) SavePool(_ context.Context, pool *ledger.Pool) error {
	if s.FailSavePool {
		return fmt.Errorf("store unavailable")
	}
	s.Pools[pool.ID] = pool.Clone()
	return nil
}

func (s *MemStore) SavePosition(_ context.Context, poolID uint64, account string, pos *ledger.Position) error {
	if s.FailSavePosition {
		return fmt.Errorf("store unavailable")
	}
	s.Positions[positionKey{poolID, account}] = pos.Clone()
	return nil
}

func (s *MemStore) GetPool(_ context.Context, poolID uint64) (*ledger.Pool, error) {
	pool, ok := s.Pools[poolID]
	if !ok {
		return nil, &db.NotFoundError{
			Key:     fmt.Sprintf("%d", poolID),
			Message: "pool not found",
		}
	}
	return pool.Clone(), nil
}

func (s *MemStore) GetPools(context.Context) ([]*ledger.Pool, error) {
	pools := make([]*ledger.Pool, 0, len(s.Pools))
	for _, pool := range s.Pools {
		pools = append(pools, pool.Clone())
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools, nil
}

func (s *MemStore) GetPositions(context.Context) ([]ledger.PositionRecord, error) {
	records := make([]ledger.PositionRecord, 0, len(s.Positions))
	for key, pos := range s.Positions {
		records = append(records, ledger.PositionRecord{
			PoolID:   key.poolID,
			Account:  key.account,
			Position: *pos.Clone(),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].PoolID != records[j].PoolID {
			return records[i].PoolID < records[j].PoolID
		}
		return records[i].Account < records[j].Account
	})
	return records, nil
}

func (s *MemStore) GetPositionsByPool(_ context.Context, poolID uint64) ([]ledger.PositionRecord, error) {
	var records []ledger.PositionRecord
	for key, pos := range s.Positions {
		if key.poolID != poolID {
			continue
		}
		records = append(records, ledger.PositionRecord{
			PoolID:   key.poolID,
			Account:  key.account,
			Position: *pos.Clone(),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Account < records[j].Account })
	return records, nil
}

func (s *MemStore) Ping(context.Context) error { return nil }

// CaptureSink collects published events for assertions.
type CaptureSink struct {
	Events []*types.LedgerEvent
}

func (c *CaptureSink) Publish(_ context.Context, ev *types.LedgerEvent) {
	c.Events = append(c.Events, ev)
}

// ByType returns the captured events of one type, in publish order.
func (c *CaptureSink) ByType(t types.EventTypes) []*types.LedgerEvent {
	var out []*types.LedgerEvent
	for _, ev := range c.Events {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}
