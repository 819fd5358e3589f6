// Package trading defines the external collaborators the position lifecycle
// drives (trade backend, price oracle, ledger status) and their
// PumpPortal, DexScreener, RPC and dry-run implementations.
package trading

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned by oracles with no price for this tick.
var ErrPriceUnavailable = errors.New("price unavailable")

// Fill is a backend's acknowledgement of a submitted trade.
type Fill struct {
	Ref      string           // transaction signature; empty if the backend returned none
	Quantity *decimal.Decimal // tokens bought or sold, when known
	Proceeds *decimal.Decimal // SOL received on disposal, when known
}

// Amount selects how much of a holding to dispose.
type Amount struct {
	Quantity decimal.Decimal
	Percent  float64 // when > 0, a share of current holdings; Quantity is ignored
}

// AllHoldings disposes of the full balance.
func AllHoldings() Amount {
	return Amount{Percent: 100}
}

// Backend builds, signs and submits trades.
type Backend interface {
	// Acquire buys assetID for capital SOL.
	Acquire(ctx context.Context, assetID string, capital decimal.Decimal) (Fill, error)
	// Dispose sells amount of assetID.
	Dispose(ctx context.Context, assetID string, amount Amount) (Fill, error)
	// HeldQuantity returns the wallet's balance of assetID in token units.
	HeldQuantity(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// PriceOracle returns the current price of an asset. Any error means the
// price is unavailable for this tick; callers keep polling.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, assetID string) (float64, error)
}

// Settlement is the ledger's view of a submitted transaction.
type Settlement int

const (
	SettlementPending Settlement = iota
	SettlementConfirmed
	SettlementFailed
)

func (s Settlement) String() string {
	switch s {
	case SettlementConfirmed:
		return "confirmed"
	case SettlementFailed:
		return "failed"
	default:
		return "pending"
	}
}

// LedgerStatus reports settlement of a transaction reference.
type LedgerStatus interface {
	SettlementStatus(ctx context.Context, ref string) (Settlement, error)
}
