package db

import (
	"context"
	"time"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
)

// StoreWithMetrics decorates a store with per-method latency metrics.
type StoreWithMetrics struct {
	db StoreInterface
}

func NewStoreWithMetrics(db StoreInterface) *StoreWithMetrics {
	return &StoreWithMetrics{db: db}
}

func (d *StoreWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *StoreWithMetrics) SavePool(ctx context.Context, pool *ledger.Pool) error {
	return d.run("SavePool", func() error {
		return d.db.SavePool(ctx, pool)
	})
}

func (d *StoreWithMetrics) SavePosition(ctx context.Context, poolID uint64, account string, pos *ledger.Position) error {
	return d.run("SavePosition", func() error {
		return d.db.SavePosition(ctx, poolID, account, pos)
	})
}

func (d *StoreWithMetrics) GetPools(ctx context.Context) (result []*ledger.Pool, err error) {
	//nolint:errcheck
	d.run("GetPools", func() error {
		result, err = d.db.GetPools(ctx)
		return err
	})
	return
}

func (d *StoreWithMetrics) GetPool(ctx context.Context, poolID uint64) (result *ledger.Pool, err error) {
	//nolint:errcheck
	d.run("GetPool", func() error {
		result, err = d.db.GetPool(ctx, poolID)
		return err
	})
	return
}

func (d *StoreWithMetrics) GetPositionsByPool(ctx context.Context, poolID uint64) (result []ledger.PositionRecord, err error) {
	//nolint:errcheck
	d.run("GetPositionsByPool", func() error {
		result, err = d.db.GetPositionsByPool(ctx, poolID)
		return err
	})
	return
}

func (d *StoreWithMetrics) GetPositions(ctx context.Context) (result []ledger.PositionRecord, err error) {
	//nolint:errcheck
	d.run("GetPositions", func() error {
		result, err = d.db.GetPositions(ctx)
		return err
	})
	return
}

// run executes the passed lambda and records its latency together with
// the method name and execution status.
func (d *StoreWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
