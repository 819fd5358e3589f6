package domain

import "github.com/shopspring/decimal"

// TradeRecord is the immutable journal entry of one terminal position.
// Corresponds to trade_records table in PostgreSQL.
type TradeRecord struct {
	TradeID string `json:"tradeId"` // deterministic hash
	AssetID string `json:"assetId"`

	AcquisitionRef string `json:"acquisitionRef,omitempty"`
	DisposalRef    string `json:"disposalRef,omitempty"`

	ExitReason ExitReason    `json:"exitReason"`
	FinalState PositionState `json:"finalState"`

	CommittedCapital decimal.Decimal  `json:"committedCapital"`  // SOL
	Proceeds         *decimal.Decimal `json:"proceeds,omitempty"` // SOL, when reported by the backend
	ReferencePrice   *float64         `json:"referencePrice,omitempty"`
	ExitPrice        *float64         `json:"exitPrice,omitempty"`

	PnLPercent     float64 `json:"pnlPercent"`
	HoldDurationMs int64   `json:"holdDurationMs"`
	RecordedAt     int64   `json:"recordedAt"` // Unix ms
}

// OutcomeClass classifies a record by realized P&L.
func (r TradeRecord) OutcomeClass() string {
	if r.FinalState == StateClosed && r.PnLPercent > 0 {
		return OutcomeClassWin
	}
	return OutcomeClassLoss
}

// Outcome class constants
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)
