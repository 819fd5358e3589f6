// Package reporting renders operator reports from the trade journal and the
// session state snapshot.
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/metrics"
)

// Report represents the session report structure.
type Report struct {
	GeneratedAt time.Time

	// Session is nil when no snapshot has been written yet.
	Session *SessionSection

	// Outcomes summarises every journaled trade.
	Outcomes *metrics.Summary

	// RealizedPnL sums proceeds minus capital over trades whose proceeds
	// were reported by the backend. SOL.
	RealizedPnL decimal.Decimal

	// CommittedCapital sums capital over all journaled trades. SOL.
	CommittedCapital decimal.Decimal

	// RecentTrades holds the newest trades first.
	RecentTrades []*domain.TradeRecord
}

// SessionSection is the snapshot part of the report.
type SessionSection struct {
	SessionID       string
	Running         bool
	DryRun          bool
	Stats           domain.Stats
	ActivePositions []domain.Position
	UpdatedAt       int64 // Unix ms
}
