package trading

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"solana-sniper/internal/risk/sources"
)

// PairSource lists the trading pairs of an asset. Implemented by sources.DexScreener.
type PairSource interface {
	Pairs(ctx context.Context, mint string) ([]sources.Pair, error)
}

// DexScreenerOracle prices an asset from its most liquid pair.
type DexScreenerOracle struct {
	pairs PairSource
}

// NewDexScreenerOracle creates an oracle over a pair source.
func NewDexScreenerOracle(pairs PairSource) *DexScreenerOracle {
	return &DexScreenerOracle{pairs: pairs}
}

// CurrentPrice returns the USD price of the deepest pair that has one.
func (o *DexScreenerOracle) CurrentPrice(ctx context.Context, assetID string) (float64, error) {
	pairs, err := o.pairs.Pairs(ctx, assetID)
	if err != nil {
		return 0, err
	}

	var (
		best  float64
		depth = -1.0
	)
	for i := range pairs {
		price, ok := pairs[i].Price()
		if !ok {
			continue
		}
		if liq := pairs[i].LiquidityUSD(); liq > depth {
			best, depth = price, liq
		}
	}
	if depth < 0 {
		return 0, ErrPriceUnavailable
	}
	return best, nil
}

// SimulatedBasePrice is the starting price of every simulated asset.
const SimulatedBasePrice = 0.0001

// SimulatedOracle produces dry-run prices around SimulatedBasePrice. Each
// read independently draws a move: 30% of reads land 0..+20% above base,
// the rest between -10% and +5%.
type SimulatedOracle struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedOracle creates an oracle. A zero seed uses the clock.
func NewSimulatedOracle(seed int64) *SimulatedOracle {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedOracle{rnd: rand.New(rand.NewSource(seed))}
}

// CurrentPrice never fails.
func (o *SimulatedOracle) CurrentPrice(_ context.Context, _ string) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var change float64
	if o.rnd.Float64() < 0.3 {
		change = o.rnd.Float64() * 0.20
	} else {
		change = o.rnd.Float64()*0.15 - 0.10
	}
	return SimulatedBasePrice * (1 + change), nil
}

var (
	_ PriceOracle = (*DexScreenerOracle)(nil)
	_ PriceOracle = (*SimulatedOracle)(nil)
)
