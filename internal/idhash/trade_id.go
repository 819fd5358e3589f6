// Package idhash derives deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(asset_id|slot_index|acquisition_ref|reserved_at)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	assetID string,
	slotIndex int,
	acquisitionRef string,
	reservedAt int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%d",
		assetID,
		slotIndex,
		acquisitionRef,
		reservedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeVerdictID computes a deterministic verdict_id.
// Formula: SHA256(asset_id|evaluated_at)
func ComputeVerdictID(assetID string, evaluatedAt int64) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", assetID, evaluatedAt)))
	return hex.EncodeToString(hash[:])
}
