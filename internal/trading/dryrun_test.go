package trading

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/risk/sources"
)

type fixedOracle struct {
	price float64
	err   error
}

func (o *fixedOracle) CurrentPrice(context.Context, string) (float64, error) {
	return o.price, o.err
}

func TestDryRun_RoundTrip(t *testing.T) {
	oracle := &fixedOracle{price: 0.0001}
	b := NewDryRunBackend(oracle, WithLatency(0, 0))
	ctx := context.Background()

	buy, err := b.Acquire(ctx, "mint", decimal.NewFromFloat(0.01))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buy.Ref, SimulatedRefPrefix))
	require.NotNil(t, buy.Quantity)
	assert.True(t, buy.Quantity.Equal(decimal.NewFromInt(100)), buy.Quantity.String())

	held, _ := b.HeldQuantity(ctx, "mint")
	assert.True(t, held.Equal(decimal.NewFromInt(100)))

	st, err := b.SettlementStatus(ctx, buy.Ref)
	require.NoError(t, err)
	assert.Equal(t, SettlementConfirmed, st)

	oracle.price = 0.00012
	sell, err := b.Dispose(ctx, "mint", AllHoldings())
	require.NoError(t, err)
	assert.NotEqual(t, buy.Ref, sell.Ref)
	require.NotNil(t, sell.Quantity)
	assert.True(t, sell.Quantity.Equal(decimal.NewFromInt(100)), sell.Quantity.String())
	assert.Nil(t, sell.Proceeds)

	held, _ = b.HeldQuantity(ctx, "mint")
	assert.True(t, held.IsZero())
}

func TestDryRun_LatencyHonoursContext(t *testing.T) {
	b := NewDryRunBackend(&fixedOracle{price: 1}, WithLatency(time.Hour, time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Acquire(ctx, "mint", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDryRun_ForeignRefsStayPending(t *testing.T) {
	b := NewDryRunBackend(&fixedOracle{price: 1})
	st, err := b.SettlementStatus(context.Background(), "5realSignature")
	require.NoError(t, err)
	assert.Equal(t, SettlementPending, st)
}

func TestSimulatedOracle_Bounds(t *testing.T) {
	o := NewSimulatedOracle(7)
	for i := 0; i < 1000; i++ {
		p, err := o.CurrentPrice(context.Background(), "mint")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, SimulatedBasePrice*0.9)
		assert.LessOrEqual(t, p, SimulatedBasePrice*1.2)
	}
}

type fakePairs struct {
	pairs []sources.Pair
	err   error
}

func (f fakePairs) Pairs(context.Context, string) ([]sources.Pair, error) {
	return f.pairs, f.err
}

func TestDexScreenerOracle_DeepestPair(t *testing.T) {
	o := NewDexScreenerOracle(fakePairs{pairs: []sources.Pair{
		{PriceUSD: "0.5", Liquidity: &sources.Liquidity{USD: 100}},
		{PriceUSD: "0.7", Liquidity: &sources.Liquidity{USD: 9000}},
		{PriceUSD: "", Liquidity: &sources.Liquidity{USD: 99999}},
	}})

	p, err := o.CurrentPrice(context.Background(), "mint")
	require.NoError(t, err)
	assert.Equal(t, 0.7, p)
}

func TestDexScreenerOracle_Unavailable(t *testing.T) {
	_, err := NewDexScreenerOracle(fakePairs{}).CurrentPrice(context.Background(), "mint")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	boom := errors.New("boom")
	_, err = NewDexScreenerOracle(fakePairs{err: boom}).CurrentPrice(context.Background(), "mint")
	assert.ErrorIs(t, err, boom)
}

func TestDryRun_Restore(t *testing.T) {
	b := NewDryRunBackend(&fixedOracle{price: 0.0002}, WithLatency(0, 0))
	ctx := context.Background()

	b.Restore("mint", decimal.NewFromInt(50))
	b.Restore("other", decimal.Zero)

	held, _ := b.HeldQuantity(ctx, "mint")
	assert.True(t, held.Equal(decimal.NewFromInt(50)))
	held, _ = b.HeldQuantity(ctx, "other")
	assert.True(t, held.IsZero())

	sell, err := b.Dispose(ctx, "mint", AllHoldings())
	require.NoError(t, err)
	require.NotNil(t, sell.Proceeds)
	assert.True(t, sell.Proceeds.Equal(decimal.RequireFromString("0.01")), sell.Proceeds.String())
}
