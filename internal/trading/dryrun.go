package trading

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimulatedRefPrefix marks references produced by the dry-run backend.
const SimulatedRefPrefix = "SIM_"

// DryRunBackend simulates trades without touching the network. Quantities
// are derived from its oracle. Fills carry no proceeds, so P&L is taken from
// the prices the position observed, including the one that triggered the exit.
// It also acts as the ledger for its own references, which settle at once.
type DryRunBackend struct {
	oracle     PriceOracle
	minLatency time.Duration
	maxLatency time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	rnd      *rand.Rand
	holdings map[string]decimal.Decimal
}

// DryRunOption configures a DryRunBackend.
type DryRunOption func(*DryRunBackend)

// WithLatency sets the simulated submission delay range.
func WithLatency(min, max time.Duration) DryRunOption {
	return func(b *DryRunBackend) {
		b.minLatency, b.maxLatency = min, max
	}
}

// WithDryRunLogger sets the logger.
func WithDryRunLogger(l *zap.Logger) DryRunOption {
	return func(b *DryRunBackend) { b.logger = l }
}

// NewDryRunBackend creates a simulated backend. Latency defaults to 100-300ms.
func NewDryRunBackend(oracle PriceOracle, opts ...DryRunOption) *DryRunBackend {
	b := &DryRunBackend{
		oracle:     oracle,
		minLatency: 100 * time.Millisecond,
		maxLatency: 300 * time.Millisecond,
		logger:     zap.NewNop(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		holdings:   make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("dryrun")
	return b
}

// Acquire records a simulated buy of capital / price tokens.
func (b *DryRunBackend) Acquire(ctx context.Context, assetID string, capital decimal.Decimal) (Fill, error) {
	if err := b.delay(ctx); err != nil {
		return Fill{}, err
	}

	price, err := b.oracle.CurrentPrice(ctx, assetID)
	if err != nil || price <= 0 {
		price = SimulatedBasePrice
	}
	qty := capital.Div(decimal.NewFromFloat(price)).Round(6)

	b.mu.Lock()
	b.holdings[assetID] = b.holdings[assetID].Add(qty)
	b.mu.Unlock()

	ref := SimulatedRefPrefix + uuid.NewString()
	b.logger.Info("simulated buy",
		zap.String("mint", assetID),
		zap.String("ref", ref),
		zap.String("capital", capital.String()),
		zap.String("quantity", qty.String()))
	return Fill{Ref: ref, Quantity: &qty}, nil
}

// Dispose records a simulated sell of the requested amount.
func (b *DryRunBackend) Dispose(ctx context.Context, assetID string, amount Amount) (Fill, error) {
	if err := b.delay(ctx); err != nil {
		return Fill{}, err
	}

	b.mu.Lock()
	held := b.holdings[assetID]
	qty := amount.Quantity
	if amount.Percent > 0 {
		qty = held.Mul(decimal.NewFromFloat(amount.Percent / 100))
	}
	if qty.GreaterThan(held) {
		qty = held
	}
	b.holdings[assetID] = held.Sub(qty)
	if b.holdings[assetID].LessThanOrEqual(decimal.Zero) {
		delete(b.holdings, assetID)
	}
	b.mu.Unlock()

	ref := SimulatedRefPrefix + uuid.NewString()
	fill := Fill{Ref: ref, Quantity: &qty}

	b.logger.Info("simulated sell",
		zap.String("mint", assetID),
		zap.String("ref", ref),
		zap.String("quantity", qty.String()))
	return fill, nil
}

// HeldQuantity returns the simulated balance.
func (b *DryRunBackend) HeldQuantity(_ context.Context, assetID string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holdings[assetID], nil
}

// Restore seeds the simulated balance of assetID, for positions recovered
// from a snapshot written by another process.
func (b *DryRunBackend) Restore(assetID string, qty decimal.Decimal) {
	if !qty.IsPositive() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holdings[assetID] = b.holdings[assetID].Add(qty)
}

// SettlementStatus confirms simulated references immediately.
func (b *DryRunBackend) SettlementStatus(_ context.Context, ref string) (Settlement, error) {
	if strings.HasPrefix(ref, SimulatedRefPrefix) {
		return SettlementConfirmed, nil
	}
	return SettlementPending, nil
}

func (b *DryRunBackend) delay(ctx context.Context) error {
	if b.maxLatency <= 0 {
		return ctx.Err()
	}
	d := b.minLatency
	if span := b.maxLatency - b.minLatency; span > 0 {
		b.mu.Lock()
		d += time.Duration(b.rnd.Int63n(int64(span)))
		b.mu.Unlock()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	_ Backend      = (*DryRunBackend)(nil)
	_ LedgerStatus = (*DryRunBackend)(nil)
)
