package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func TestTradeJournal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeJournal(pool)

	proceeds := decimal.RequireFromString("0.0123456789")
	closed := &domain.TradeRecord{
		TradeID:          "trade-b",
		AssetID:          "mint1",
		AcquisitionRef:   "sigBuy",
		DisposalRef:      "sigSell",
		ExitReason:       domain.ExitTakeProfit,
		FinalState:       domain.StateClosed,
		CommittedCapital: decimal.RequireFromString("0.01"),
		Proceeds:         &proceeds,
		ReferencePrice:   ptr(0.0001),
		ExitPrice:        ptr(0.000123),
		PnLPercent:       23.456789,
		HoldDurationMs:   4200,
		RecordedAt:       2000,
	}
	failed := &domain.TradeRecord{
		TradeID:          "trade-a",
		AssetID:          "mint1",
		ExitReason:       domain.ReasonAcquisitionFailed,
		FinalState:       domain.StateFailed,
		CommittedCapital: decimal.RequireFromString("0.01"),
		RecordedAt:       1000,
	}

	require.NoError(t, store.Insert(ctx, closed))
	require.NoError(t, store.Insert(ctx, failed))
	assert.ErrorIs(t, store.Insert(ctx, closed), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.TradeRecord{}), storage.ErrInvalidInput)

	got, err := store.GetByID(ctx, "trade-b")
	require.NoError(t, err)
	assert.True(t, got.Proceeds.Equal(proceeds), "proceeds lost precision: %s", got.Proceeds)
	assert.True(t, got.CommittedCapital.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, domain.ExitTakeProfit, got.ExitReason)
	assert.Equal(t, domain.StateClosed, got.FinalState)
	require.NotNil(t, got.ReferencePrice)
	assert.InDelta(t, 0.0001, *got.ReferencePrice, 1e-12)
	assert.Equal(t, int64(4200), got.HoldDurationMs)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byAsset, err := store.GetByAsset(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, byAsset, 2)
	assert.Equal(t, "trade-a", byAsset[0].TradeID)
	assert.Nil(t, byAsset[0].Proceeds)
	assert.Nil(t, byAsset[0].ExitPrice)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVerdictLog(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	log := NewVerdictLog(pool)

	v := &domain.VerdictRecord{
		VerdictID:       "v1",
		AssetID:         "mint1",
		OriginSignature: "sigCreate",
		Accepted:        false,
		CompositeScore:  35,
		RejectionReason: "security: freeze authority retained",
		Checks: map[string]domain.RiskCheckResult{
			domain.CheckSecurity: {
				CheckName: domain.CheckSecurity,
				Outcome:   domain.OutcomeFail,
				Hard:      true,
				Reason:    "freeze authority retained",
			},
			domain.CheckRiskReport: {
				CheckName: domain.CheckRiskReport,
				Outcome:   domain.OutcomePass,
				Score:     ptr(70.0),
			},
		},
		EvaluatedAt: 1000,
	}
	require.NoError(t, log.Insert(ctx, v))
	assert.ErrorIs(t, log.Insert(ctx, v), storage.ErrDuplicateKey)

	got, err := log.GetByAsset(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 35, got[0].CompositeScore)
	assert.Equal(t, "sigCreate", got[0].OriginSignature)
	require.Len(t, got[0].Checks, 2)
	assert.True(t, got[0].Checks[domain.CheckSecurity].Hard)
	assert.Equal(t, 70.0, *got[0].Checks[domain.CheckRiskReport].Score)
}

func TestSnapshotStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	snap := &domain.StateSnapshot{
		SessionID: "session-1",
		Running:   true,
		Stats:     domain.Stats{Detected: 4, Executed: 1},
		ActivePositions: []domain.Position{
			{AssetID: "mint1", State: domain.StateHolding, CommittedCapital: decimal.RequireFromString("0.01")},
		},
		UpdatedAt: 10,
	}
	require.NoError(t, store.Save(ctx, snap))

	snap.Running = false
	snap.ActivePositions = nil
	snap.UpdatedAt = 20
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.Running)
	assert.Equal(t, int64(20), got.UpdatedAt)
	assert.Equal(t, int64(4), got.Stats.Detected)
	assert.Empty(t, got.ActivePositions)
}
