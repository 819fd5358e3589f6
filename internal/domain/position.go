package domain

import "github.com/shopspring/decimal"

// PositionState is a node of the position lifecycle.
type PositionState string

const (
	StateReserved             PositionState = "RESERVED"
	StateAcquiring            PositionState = "ACQUIRING"
	StateAwaitingConfirmation PositionState = "AWAITING_CONFIRMATION"
	StateHolding              PositionState = "HOLDING"
	StateDisposing            PositionState = "DISPOSING"
	StateClosed               PositionState = "CLOSED"
	StateFailed               PositionState = "FAILED"
)

// IsTerminal reports whether no further transitions are possible.
func (s PositionState) IsTerminal() bool {
	return s == StateClosed || s == StateFailed
}

// ExitReason explains why a position left the active set.
type ExitReason string

// Exit triggers.
const (
	ExitTakeProfit   ExitReason = "TP"
	ExitStopLoss     ExitReason = "SL"
	ExitTimeout      ExitReason = "TIME"
	ExitTrailingStop ExitReason = "TRAIL"
	ExitManual       ExitReason = "MANUAL" // operator close
)

// Failure reasons.
const (
	ReasonAcquisitionFailed   ExitReason = "ACQUISITION_FAILED"
	ReasonNoReference         ExitReason = "NO_REFERENCE"
	ReasonSettlementRejected  ExitReason = "SETTLEMENT_REJECTED"
	ReasonConfirmationTimeout ExitReason = "CONFIRMATION_TIMEOUT"
	ReasonNoHoldings          ExitReason = "NO_HOLDINGS"
	ReasonDisposalAbandoned   ExitReason = "DISPOSAL_ABANDONED"
)

// IsExitTrigger reports whether r is produced by an exit rule.
func (r ExitReason) IsExitTrigger() bool {
	return r == ExitTakeProfit || r == ExitStopLoss || r == ExitTimeout || r == ExitTrailingStop
}

// Position is a point-in-time copy of a managed position.
type Position struct {
	AssetID   string        `json:"assetId"`
	SlotIndex int           `json:"slotIndex"`
	State     PositionState `json:"state"`

	ReservedAt      int64    `json:"reservedAt"`                // Unix ms
	AcquisitionTime int64    `json:"acquisitionTime,omitempty"` // Unix ms, set on backend acknowledgement
	ReferencePrice  *float64 `json:"referencePrice,omitempty"`  // first successful oracle read
	LastPrice       *float64 `json:"lastPrice,omitempty"`

	AcquisitionRef string `json:"acquisitionRef,omitempty"`
	DisposalRef    string `json:"disposalRef,omitempty"`

	CommittedCapital decimal.Decimal  `json:"committedCapital"` // SOL, fixed at reservation
	AcquiredQuantity *decimal.Decimal `json:"acquiredQuantity,omitempty"`

	ExitReason        ExitReason `json:"exitReason,omitempty"`
	DisposalAttempts  int        `json:"disposalAttempts,omitempty"`
	LastDisposalError string     `json:"lastDisposalError,omitempty"`
}

// Clone returns a copy that shares no pointers with p.
func (p Position) Clone() Position {
	out := p
	if p.ReferencePrice != nil {
		v := *p.ReferencePrice
		out.ReferencePrice = &v
	}
	if p.LastPrice != nil {
		v := *p.LastPrice
		out.LastPrice = &v
	}
	if p.AcquiredQuantity != nil {
		v := *p.AcquiredQuantity
		out.AcquiredQuantity = &v
	}
	return out
}
