package trading

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/rpcpool"
)

// RPCLedger reads settlement status from the primary endpoint, which is the
// one trades are observed through.
type RPCLedger struct {
	pool *rpcpool.Pool
}

// NewRPCLedger creates a ledger reader.
func NewRPCLedger(pool *rpcpool.Pool) *RPCLedger {
	return &RPCLedger{pool: pool}
}

// SettlementStatus maps getSignatureStatuses: confirmed or finalized settle,
// an on-chain error fails, anything else is pending.
func (l *RPCLedger) SettlementStatus(ctx context.Context, ref string) (Settlement, error) {
	statuses, err := l.pool.Primary().Client.GetSignatureStatuses(ctx, []string{ref})
	if err != nil {
		return SettlementPending, err
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return SettlementPending, nil
	}
	st := statuses[0]
	switch {
	case st.Failed():
		return SettlementFailed, nil
	case st.Settled():
		return SettlementConfirmed, nil
	default:
		return SettlementPending, nil
	}
}

// RPCHoldings reads the wallet's token balance from the primary endpoint.
type RPCHoldings struct {
	pool   *rpcpool.Pool
	wallet string
}

// NewRPCHoldings creates a holdings reader for wallet.
func NewRPCHoldings(pool *rpcpool.Pool, wallet string) *RPCHoldings {
	return &RPCHoldings{pool: pool, wallet: wallet}
}

// HeldQuantity sums every token account of the wallet for assetID, in token units.
func (h *RPCHoldings) HeldQuantity(ctx context.Context, assetID string) (decimal.Decimal, error) {
	accounts, err := h.pool.Primary().Client.GetTokenAccountsByOwner(ctx, h.wallet, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, acc := range accounts {
		raw, err := decimal.NewFromString(acc.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("token account %s: bad amount %q: %w", acc.Address, acc.Amount, err)
		}
		total = total.Add(raw.Shift(int32(-acc.Decimals)))
	}
	return total, nil
}

// Balance returns the wallet's SOL balance.
func (h *RPCHoldings) Balance(ctx context.Context) (decimal.Decimal, error) {
	lamports, err := h.pool.Primary().Client.GetBalance(ctx, h.wallet)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(int64(lamports)).Shift(-9), nil
}

var (
	_ LedgerStatus   = (*RPCLedger)(nil)
	_ HoldingsReader = (*RPCHoldings)(nil)
)
