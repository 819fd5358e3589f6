package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/rpcpool"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/solana/stub"
)

func stubPool(t *testing.T) (*rpcpool.Pool, *stub.RPCClient) {
	t.Helper()
	primary := stub.NewRPCClient()
	p, err := rpcpool.New([]string{"primary", "secondary"}, rpcpool.WithClientFactory(func(url string) solana.RPCClient {
		if url == "primary" {
			return primary
		}
		return stub.NewRPCClient()
	}))
	require.NoError(t, err)
	return p, primary
}

func TestRPCLedger_SettlementStatus(t *testing.T) {
	pool, rpc := stubPool(t)
	rpc.SetStatus("ok", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed})
	rpc.SetStatus("final", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentFinalized})
	rpc.SetStatus("processed", &solana.SignatureStatus{ConfirmationStatus: "processed"})
	rpc.SetStatus("bad", &solana.SignatureStatus{ConfirmationStatus: solana.CommitmentConfirmed, Err: map[string]interface{}{"InstructionError": 1}})

	ledger := NewRPCLedger(pool)
	ctx := context.Background()

	for ref, want := range map[string]Settlement{
		"ok":        SettlementConfirmed,
		"final":     SettlementConfirmed,
		"processed": SettlementPending,
		"bad":       SettlementFailed,
		"unknown":   SettlementPending,
	} {
		got, err := ledger.SettlementStatus(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, got, ref)
	}
}

func TestRPCLedger_ErrorIsReported(t *testing.T) {
	pool, rpc := stubPool(t)
	rpc.FailWith = func(string) error { return errors.New("boom") }

	got, err := NewRPCLedger(pool).SettlementStatus(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, SettlementPending, got)
}

func TestRPCHoldings_SumsAccounts(t *testing.T) {
	pool, rpc := stubPool(t)
	rpc.SetTokenAccounts("wallet", "mint", []solana.TokenAccount{
		{Address: "a1", Mint: "mint", Amount: "1500000", Decimals: 6},
		{Address: "a2", Mint: "mint", Amount: "500000", Decimals: 6},
	})
	rpc.SetBalance("wallet", 2_500_000_000)

	h := NewRPCHoldings(pool, "wallet")
	qty, err := h.HeldQuantity(context.Background(), "mint")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(2)), qty.String())

	none, err := h.HeldQuantity(context.Background(), "other")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	bal, err := h.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromFloat(2.5)), bal.String())
}

func TestRPCHoldings_BadAmount(t *testing.T) {
	pool, rpc := stubPool(t)
	rpc.SetTokenAccounts("wallet", "mint", []solana.TokenAccount{{Address: "a1", Amount: "n/a"}})

	_, err := NewRPCHoldings(pool, "wallet").HeldQuantity(context.Background(), "mint")
	assert.Error(t, err)
}
