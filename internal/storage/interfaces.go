// Package storage defines the persistence contracts of the sniper: the
// append-only trade journal, the screening verdict log and the session
// state snapshot. Backends live in subpackages.
package storage

import (
	"context"

	"solana-sniper/internal/domain"
)

// TradeJournal provides access to trade_records storage.
type TradeJournal interface {
	// Insert appends a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByAsset retrieves all trades for an asset, ordered by recorded_at ASC.
	GetByAsset(ctx context.Context, assetID string) ([]*domain.TradeRecord, error)

	// GetAll retrieves every trade, ordered by recorded_at ASC.
	GetAll(ctx context.Context) ([]*domain.TradeRecord, error)
}

// VerdictLog provides access to screening_verdicts storage.
type VerdictLog interface {
	// Insert appends a verdict. Returns ErrDuplicateKey if verdict_id exists.
	Insert(ctx context.Context, v *domain.VerdictRecord) error

	// GetByAsset retrieves all verdicts for an asset, ordered by evaluated_at ASC.
	GetByAsset(ctx context.Context, assetID string) ([]*domain.VerdictRecord, error)
}

// SnapshotStore holds the latest session state snapshot.
type SnapshotStore interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, s *domain.StateSnapshot) error

	// Load returns the stored snapshot. Returns ErrNotFound if none was saved.
	Load(ctx context.Context) (*domain.StateSnapshot, error)
}
