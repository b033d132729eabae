package refresh

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lendingScope/internal/aggregate"
	"lendingScope/internal/fixedpoint"
	"lendingScope/internal/ledger"
	"lendingScope/internal/metrics"
	"lendingScope/internal/model"
)

// Config configures a Coordinator.
type Config struct {
	Market       common.Address
	Assets       []model.AssetConfig
	MaxRetries   int
	RetryBackoff time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Coordinator owns the visible view of the active account. It pulls raw
// snapshots from the ledger in cancellable epochs and is the only writer of
// the view.
type Coordinator struct {
	reader     ledger.Reader
	oracle     ledger.Oracle
	market     common.Address
	assets     []model.AssetConfig
	maxRetries int
	backoff    time.Duration
	clock      func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	account common.Address
	seq     uint64
	open    map[string]*epoch
	raws    map[string]model.RawSnapshot
	written map[string]uint64
	view    model.View
}

// New creates a Coordinator with no active account.
func New(reader ledger.Reader, oracle ledger.Oracle, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	c := &Coordinator{
		reader:     reader,
		oracle:     oracle,
		market:     cfg.Market,
		assets:     cfg.Assets,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		clock:      clock,
		logger:     logger,
		metrics:    m,
		open:       make(map[string]*epoch),
		raws:       make(map[string]model.RawSnapshot),
		written:    make(map[string]uint64),
	}
	c.view = c.emptyView(common.Address{})
	return c
}

// SetAccount switches the active account. Every open epoch is cancelled and
// the view is cleared, so no result fetched for the previous account can be
// applied afterwards.
func (c *Coordinator) SetAccount(account common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if account == c.account {
		return
	}
	for id, ep := range c.open {
		ep.cancel()
		delete(c.open, id)
	}
	c.account = account
	c.raws = make(map[string]model.RawSnapshot)
	c.written = make(map[string]uint64)
	c.view = c.emptyView(account)
	c.logger.Info("active account changed", zap.String("account", account.Hex()))
}

// Snapshot returns the current view. The view is replaced, never mutated,
// so the returned value is safe to read without locking.
func (c *Coordinator) Snapshot() model.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Recompute re-derives accrued values from the stored raw snapshots at the
// current clock without fetching.
func (c *Coordinator) Recompute() model.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account != (common.Address{}) {
		c.recomputeLocked()
	}
	return c.view
}

// Refresh fetches every configured asset for the active account.
func (c *Coordinator) Refresh(ctx context.Context) (Outcome, error) {
	return c.run(ctx, "", c.assets)
}

// RefreshAsset fetches a single asset, leaving the others untouched.
func (c *Coordinator) RefreshAsset(ctx context.Context, assetID string) (Outcome, error) {
	for _, cfg := range c.assets {
		if cfg.ID == assetID {
			return c.run(ctx, assetID, []model.AssetConfig{cfg})
		}
	}
	return OutcomeFailed, fmt.Errorf("%w: %s", model.ErrAssetNotFound, assetID)
}

func (c *Coordinator) run(ctx context.Context, scope string, assets []model.AssetConfig) (Outcome, error) {
	start := time.Now()
	ep, err := c.openEpoch(scope)
	if err != nil {
		c.metrics.ObserveRefresh(scope, OutcomeFailed.String(), time.Since(start))
		return OutcomeFailed, err
	}
	defer c.closeEpoch(ep)

	outcome, err := c.fetchAndApply(ctx, ep, assets)
	c.metrics.ObserveRefresh(scope, outcome.String(), time.Since(start))

	fields := []zap.Field{
		zap.String("epoch", ep.id),
		zap.Uint64("seq", ep.seq),
		zap.String("scope", scopeLabel(scope)),
		zap.String("account", ep.account.Hex()),
		zap.String("outcome", outcome.String()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		c.logger.Warn("refresh failed", append(fields, zap.Error(err))...)
	} else {
		c.logger.Debug("refresh finished", fields...)
	}
	return outcome, err
}

func (c *Coordinator) openEpoch(scope string) (*epoch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.account == (common.Address{}) {
		return nil, fmt.Errorf("%w: no active account", model.ErrContractNotReady)
	}
	for id, ep := range c.open {
		if ep.scope == scope {
			ep.cancel()
			delete(c.open, id)
		}
	}
	c.seq++
	ep := newEpoch(c.seq, c.account, scope)
	c.open[ep.id] = ep
	return ep, nil
}

func (c *Coordinator) closeEpoch(ep *epoch) {
	c.mu.Lock()
	delete(c.open, ep.id)
	c.mu.Unlock()
	ep.cancel()
}

func (c *Coordinator) fetchAndApply(ctx context.Context, ep *epoch, assets []model.AssetConfig) (Outcome, error) {
	raws := make([]model.RawSnapshot, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range assets {
		i, cfg := i, cfg
		g.Go(func() error {
			raw, err := c.fetchAsset(gctx, ep, cfg)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", cfg.ID, err)
			}
			raws[i] = raw
			return nil
		})
	}
	err := g.Wait()

	if ep.cancelled() || errors.Is(err, errSuperseded) {
		return OutcomeSuperseded, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}
	if !c.apply(ep, raws) {
		return OutcomeSuperseded, nil
	}
	return OutcomeApplied, nil
}

// apply writes the epoch's snapshots. The cancellation and account checks
// happen under the same lock as the write.
func (c *Coordinator) apply(ep *epoch, raws []model.RawSnapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ep.cancelled() || ep.account != c.account {
		return false
	}
	for _, raw := range raws {
		if ep.seq <= c.written[raw.AssetID] {
			continue
		}
		c.raws[raw.AssetID] = raw
		c.written[raw.AssetID] = ep.seq
	}
	c.recomputeLocked()
	return true
}

func (c *Coordinator) fetchAsset(ctx context.Context, ep *epoch, cfg model.AssetConfig) (model.RawSnapshot, error) {
	raw := model.RawSnapshot{AssetID: cfg.ID}
	owner := ep.account

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"price", func(ctx context.Context) (err error) {
			raw.Price, err = c.oracle.Price(ctx, cfg.Oracle)
			return err
		}},
		{"position", func(ctx context.Context) error {
			pos, err := c.reader.Position(ctx, owner, c.market, cfg.Token)
			if err != nil {
				return err
			}
			raw.UserSupplied, raw.UserBorrowed = pos.Supplied, pos.Borrowed
			return nil
		}},
		{"total supplied", func(ctx context.Context) (err error) {
			raw.TotalSupplied, err = c.reader.TotalSupplied(ctx, c.market, cfg.Token)
			return err
		}},
		{"total borrowed", func(ctx context.Context) (err error) {
			raw.TotalBorrowed, err = c.reader.TotalBorrowed(ctx, c.market, cfg.Token)
			return err
		}},
		{"accumulators", func(ctx context.Context) error {
			acc, err := c.reader.Accumulators(ctx, c.market, cfg.Token)
			if err != nil {
				return err
			}
			raw.Deposit, raw.Borrow = acc.Deposit, acc.Borrow
			return nil
		}},
		{"public balance", func(ctx context.Context) (err error) {
			raw.PublicBalance, err = c.reader.PublicBalance(ctx, owner, cfg.Token)
			return err
		}},
		{"private balance", func(ctx context.Context) (err error) {
			raw.PrivateBalance, err = c.reader.PrivateBalance(ctx, owner, cfg.Token)
			return err
		}},
	}

	for _, step := range steps {
		if ep.cancelled() {
			return raw, errSuperseded
		}
		if err := withRetry(ctx, ep.ctx.Done(), c.maxRetries, c.backoff, step.fn); err != nil {
			return raw, fmt.Errorf("read %s: %w", step.name, err)
		}
		if ep.cancelled() {
			return raw, errSuperseded
		}
	}
	return raw, nil
}

func (c *Coordinator) recomputeLocked() {
	c.view = aggregate.Compute(c.account, c.assets, c.raws, c.now())
	pos := c.view.Position
	c.metrics.SetPosition(pos.HealthFactor.Float64(), usdFloat(pos.TotalSuppliedUSD), usdFloat(pos.TotalBorrowedUSD))
}

func (c *Coordinator) emptyView(account common.Address) model.View {
	return model.View{
		Account:    account,
		Assets:     []model.Asset{},
		Position:   model.EmptyPosition(),
		ComputedAt: c.now(),
	}
}

func (c *Coordinator) now() uint64 {
	ts := c.clock().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func usdFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(fixedpoint.PriceScale)).Float64()
	return f
}
