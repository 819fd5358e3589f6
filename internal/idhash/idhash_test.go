package idhash

import (
	"testing"

	"solana-sniper/internal/domain"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name           string
		assetID        string
		slotIndex      int
		acquisitionRef string
		reservedAt     int64
	}{
		{
			name:           "live trade",
			assetID:        "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
			slotIndex:      0,
			acquisitionRef: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			reservedAt:     1704067234567,
		},
		{
			name:       "failed before acquisition",
			assetID:    "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
			slotIndex:  1,
			reservedAt: 1704067300000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.assetID, tt.slotIndex, tt.acquisitionRef, tt.reservedAt)

			if len(got) != 64 {
				t.Errorf("ComputeTradeID() length = %d, want 64", len(got))
			}

			got2 := ComputeTradeID(tt.assetID, tt.slotIndex, tt.acquisitionRef, tt.reservedAt)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID("Mint", 0, "Sig", 1000)

	if base == ComputeTradeID("Other", 0, "Sig", 1000) {
		t.Error("Different asset should produce different hash")
	}
	if base == ComputeTradeID("Mint", 1, "Sig", 1000) {
		t.Error("Different slot should produce different hash")
	}
	if base == ComputeTradeID("Mint", 0, "Sig", 1001) {
		t.Error("Different reservation time should produce different hash")
	}
}

func TestComputeVerdictID(t *testing.T) {
	a := ComputeVerdictID("Mint", 1000)
	if len(a) != 64 {
		t.Errorf("ComputeVerdictID() length = %d, want 64", len(a))
	}
	if a == ComputeVerdictID("Mint", 1001) {
		t.Error("Different evaluation time should produce different hash")
	}
}

func TestComputeCandidateID(t *testing.T) {
	e := domain.CandidateEvent{
		AssetID:         "Mint",
		OriginSignature: "Sig",
		DetectedAtSlot:  12345678,
		Source:          domain.SourceLaunchFeed,
	}

	got := ComputeCandidateID(e)
	if got != ComputeCandidateID(e) {
		t.Error("ComputeCandidateID() not deterministic")
	}

	// Wall clock is not part of the identity.
	e2 := e
	e2.DetectedAt = 99
	if got != ComputeCandidateID(e2) {
		t.Error("Detection time should not change the candidate ID")
	}

	e3 := e
	e3.OriginSignature = "Other"
	if got == ComputeCandidateID(e3) {
		t.Error("Different signature should produce different hash")
	}
}
