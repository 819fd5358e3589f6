package domain

// CandidateEvent is a newly detected asset awaiting screening.
// Immutable; consumed exactly once by the risk screen.
type CandidateEvent struct {
	AssetID         string `json:"assetId"`         // token mint address
	OriginSignature string `json:"originSignature"` // creation transaction signature
	DetectedAtSlot  int64  `json:"detectedAtSlot"`  // Solana slot number
	DetectedAt      int64  `json:"detectedAt"`      // wall clock, Unix ms
	Source          Source `json:"source"`
}
