package postgres

import (
	"context"

	"solana-sniper/internal/storage"
)

// DiscoveryProgressStore is a PostgreSQL implementation of storage.DiscoveryProgressStore.
// The launch feed position is a single discovery_progress row; screened
// mints accumulate in discovery_seen_mints so restarts never rescreen them.
type DiscoveryProgressStore struct {
	pool *Pool
}

// NewDiscoveryProgressStore creates a new PostgreSQL discovery progress store.
func NewDiscoveryProgressStore(pool *Pool) *DiscoveryProgressStore {
	return &DiscoveryProgressStore{pool: pool}
}

// GetLastProcessed returns the last processed slot and signature.
func (s *DiscoveryProgressStore) GetLastProcessed(ctx context.Context) (*storage.DiscoveryProgress, error) {
	var (
		progress storage.DiscoveryProgress
		slot     int64
	)
	err := s.pool.QueryRow(ctx, `SELECT slot, signature FROM discovery_progress WHERE id = 1`).
		Scan(&slot, &progress.Signature)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	progress.Slot = uint64(slot)
	return &progress, nil
}

// SetLastProcessed saves the last processed slot and signature.
func (s *DiscoveryProgressStore) SetLastProcessed(ctx context.Context, progress *storage.DiscoveryProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO discovery_progress (id, slot, signature, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, int64(progress.Slot), progress.Signature)

	return err
}

// IsMintSeen checks if a mint address has been processed.
func (s *DiscoveryProgressStore) IsMintSeen(ctx context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM discovery_seen_mints WHERE mint = $1)`, mint).
		Scan(&exists)
	return exists, err
}

// MarkMintSeen records that a mint address has been processed.
func (s *DiscoveryProgressStore) MarkMintSeen(ctx context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO discovery_seen_mints (mint, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (mint) DO NOTHING
	`, mint)

	return err
}

// LoadSeenMints returns all seen mints.
func (s *DiscoveryProgressStore) LoadSeenMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint FROM discovery_seen_mints ORDER BY seen_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, err
		}
		mints = append(mints, mint)
	}

	return mints, rows.Err()
}

var _ storage.DiscoveryProgressStore = (*DiscoveryProgressStore)(nil)
