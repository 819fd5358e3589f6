package solana

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Commitment levels reported by getSignatureStatuses.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus string
}

// Settled reports whether the transaction reached confirmed or finalized commitment.
func (s *SignatureStatus) Settled() bool {
	return s != nil && (s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized)
}

// Failed reports whether the transaction landed with an on-chain error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}

// TokenAccount is a parsed SPL token account balance.
type TokenAccount struct {
	Address  string
	Mint     string
	Amount   string // raw base units
	Decimals int
	UIAmount string
}
