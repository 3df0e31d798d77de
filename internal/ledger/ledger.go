package ledger

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

// Bank executes asset movements between accounts and ledger custody.
// Implementations may run arbitrary external logic and call back into
// the ledger; such reentrant calls are rejected by the guard.
type Bank interface {
	TransferIn(ctx context.Context, asset, from string, amount sdkmath.Int) error
	TransferOut(ctx context.Context, asset, to string, amount sdkmath.Int) error
}

// Authorizer decides whether a caller may invoke administrative
// operations. Access-control logic lives outside the ledger.
type Authorizer interface {
	IsPrivileged(caller string) bool
}

// Clock supplies the external monotonically non-decreasing timestamp,
// in Unix seconds. The same reading may repeat across calls.
type Clock interface {
	Now() uint64
}

// Store persists committed pool and position state across restarts.
type Store interface {
	SavePool(ctx context.Context, pool *Pool) error
	SavePosition(ctx context.Context, poolID uint64, account string, pos *Position) error
	GetPools(ctx context.Context) ([]*Pool, error)
	GetPositions(ctx context.Context) ([]PositionRecord, error)
}

// PositionRecord is a position together with its (pool, account) key,
// as loaded from the store at bootstrap.
type PositionRecord struct {
	PoolID   uint64
	Account  string
	Position Position
}

// Notifier publishes ledger events, fire-and-forget. It must never
// block and is never on the success-critical path.
type Notifier interface {
	Publish(ctx context.Context, ev *types.LedgerEvent)
}

// Ledger tracks staked balances across pools and distributes the reward
// asset proportionally to stake-weighted time, in integer arithmetic.
//
// Mutating entrypoints work on clones of the affected records, run all
// collaborator transfers, persist to the store, and only then swap the
// clones into the committed maps. Any failure before the swap leaves
// observable state untouched.
type Ledger struct {
	// guard is the per-call mutual exclusion for mutating entrypoints.
	// TryLock makes a reentrant callback from a Bank fail immediately
	// instead of deadlocking.
	guard sync.Mutex

	// mu protects the committed maps. It is never held across a Bank or
	// Store call, so read-only lookups stay safe during transfers.
	mu        sync.RWMutex
	pools     poolRegistry
	positions *positionStore

	bank     Bank
	auth     Authorizer
	clock    Clock
	store    Store
	notifier Notifier
}

func New(bank Bank, auth Authorizer, clock Clock, store Store, notifier Notifier) *Ledger {
	return &Ledger{
		positions: newPositionStore(),
		bank:      bank,
		auth:      auth,
		clock:     clock,
		store:     store,
		notifier:  notifier,
	}
}

// Bootstrap loads the committed state from the store. It must run
// before the ledger serves any operation.
func (l *Ledger) Bootstrap(ctx context.Context) error {
	pools, err := l.store.GetPools(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pools: %w", err)
	}
	records, err := l.store.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, pool := range pools {
		if pool.ID != uint64(i) {
			return fmt.Errorf("pool ids are not sequential: got %d at index %d", pool.ID, i)
		}
		l.pools.add(pool)
	}
	for _, rec := range records {
		if _, ok := l.pools.get(rec.PoolID); !ok {
			return fmt.Errorf("position for unknown pool %d", rec.PoolID)
		}
		pos := rec.Position
		l.positions.put(rec.PoolID, rec.Account, &pos)
	}

	log.Ctx(ctx).Info().
		Int("pools", l.pools.count()).
		Int("positions", len(records)).
		Msg("Ledger state loaded")
	return nil
}

func (l *Ledger) enter(op string) error {
	if !l.guard.TryLock() {
		return &types.ReentrancyError{Operation: op}
	}
	return nil
}

func (l *Ledger) exit() {
	l.guard.Unlock()
}

func (l *Ledger) notify(ctx context.Context, ev *types.LedgerEvent) {
	if l.notifier == nil {
		return
	}
	l.notifier.Publish(ctx, ev)
}

// UpdatePool settles the pool accumulator to the current time. Anyone
// may call it; it performs no transfers.
func (l *Ledger) UpdatePool(ctx context.Context, poolID uint64) error {
	if err := l.enter("UpdatePool"); err != nil {
		return err
	}
	defer l.exit()

	pool, err := l.clonePool(poolID)
	if err != nil {
		return err
	}

	now := l.clock.Now()
	settle(pool, now)

	if err := l.store.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("failed to persist pool %d: %w", poolID, err)
	}

	l.mu.Lock()
	l.pools.put(pool)
	l.mu.Unlock()

	l.notify(ctx, &types.LedgerEvent{
		EventType: types.EventPoolUpdated,
		PoolID:    pool.ID,
		Timestamp: now,
	})
	return nil
}

// PendingRewards is a read-only projection of the reward the account
// could claim right now. Accounts without a position pend zero.
func (l *Ledger) PendingRewards(poolID uint64, account string) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pool, ok := l.pools.get(poolID)
	if !ok {
		return sdkmath.Int{}, &types.ValidationError{Message: fmt.Sprintf("pool %d does not exist", poolID)}
	}
	pos, ok := l.positions.get(poolID, account)
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return pendingReward(pos, peek(pool, l.clock.Now()))
}

// GetPoolInfo returns a snapshot of the pool record.
func (l *Ledger) GetPoolInfo(poolID uint64) (*Pool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pool, ok := l.pools.get(poolID)
	if !ok {
		return nil, &types.ValidationError{Message: fmt.Sprintf("pool %d does not exist", poolID)}
	}
	return pool.Clone(), nil
}

// GetUserInfo returns a snapshot of the account's position. Accounts
// that never staked get a zero position.
func (l *Ledger) GetUserInfo(poolID uint64, account string) (*Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.pools.get(poolID); !ok {
		return nil, &types.ValidationError{Message: fmt.Sprintf("pool %d does not exist", poolID)}
	}
	pos, ok := l.positions.get(poolID, account)
	if !ok {
		return newPosition(), nil
	}
	return pos.Clone(), nil
}

// PoolCount returns the number of registered pools.
func (l *Ledger) PoolCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pools.count()
}

// clonePool fetches a pool under the read lock and returns a mutable
// copy, or a ValidationError if the id is unknown.
func (l *Ledger) clonePool(poolID uint64) (*Pool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pool, ok := l.pools.get(poolID)
	if !ok {
		return nil, &types.ValidationError{Message: fmt.Sprintf("pool %d does not exist", poolID)}
	}
	return pool.Clone(), nil
}

// clonePosition fetches the account's position under the read lock and
// returns a mutable copy, creating a zero position if none exists yet.
func (l *Ledger) clonePosition(poolID uint64, account string) *Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.positions.get(poolID, account)
	if !ok {
		return newPosition()
	}
	return pos.Clone()
}
