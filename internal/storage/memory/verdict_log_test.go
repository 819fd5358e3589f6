package memory

import (
	"context"
	"errors"
	"testing"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func TestVerdictLog_InsertAndGetByAsset(t *testing.T) {
	log := NewVerdictLog()
	ctx := context.Background()

	score := 80.0
	v1 := &domain.VerdictRecord{
		VerdictID:      "v2",
		AssetID:        "mint1",
		Accepted:       false,
		CompositeScore: 30,
		Checks: map[string]domain.RiskCheckResult{
			domain.CheckRiskReport: {CheckName: domain.CheckRiskReport, Outcome: domain.OutcomeFail, Score: &score},
		},
		EvaluatedAt: 2000,
	}
	v2 := &domain.VerdictRecord{VerdictID: "v1", AssetID: "mint1", Accepted: true, CompositeScore: 90, EvaluatedAt: 1000}
	v3 := &domain.VerdictRecord{VerdictID: "v3", AssetID: "mint2", EvaluatedAt: 500}

	for _, v := range []*domain.VerdictRecord{v1, v2, v3} {
		if err := log.Insert(ctx, v); err != nil {
			t.Fatalf("Insert %s failed: %v", v.VerdictID, err)
		}
	}

	got, err := log.GetByAsset(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 verdicts, got %d", len(got))
	}
	if got[0].VerdictID != "v1" || got[1].VerdictID != "v2" {
		t.Errorf("Unexpected order: %s, %s", got[0].VerdictID, got[1].VerdictID)
	}
	if *got[1].Checks[domain.CheckRiskReport].Score != 80 {
		t.Errorf("Check score not preserved")
	}

	// Callers mutating their input must not alter the log.
	score = 1
	again, _ := log.GetByAsset(ctx, "mint1")
	if *again[1].Checks[domain.CheckRiskReport].Score != 80 {
		t.Errorf("log shares check score with caller")
	}
}

func TestVerdictLog_DuplicateKey(t *testing.T) {
	log := NewVerdictLog()
	ctx := context.Background()

	v := &domain.VerdictRecord{VerdictID: "v1", AssetID: "mint1"}
	if err := log.Insert(ctx, v); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := log.Insert(ctx, v); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestVerdictLog_Empty(t *testing.T) {
	got, err := NewVerdictLog().GetByAsset(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no verdicts, got %d", len(got))
	}
}
