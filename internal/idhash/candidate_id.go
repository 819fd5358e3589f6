package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-sniper/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(asset_id|source|origin_signature|slot)
// The same launch seen twice on the feed yields the same ID.
func ComputeCandidateID(e domain.CandidateEvent) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		e.AssetID,
		string(e.Source),
		e.OriginSignature,
		e.DetectedAtSlot,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
