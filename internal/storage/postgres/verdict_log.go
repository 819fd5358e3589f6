package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// VerdictLog is a PostgreSQL implementation of storage.VerdictLog.
// Per-check results are kept as JSONB.
type VerdictLog struct {
	pool *Pool
}

// NewVerdictLog creates a new PostgreSQL verdict log.
func NewVerdictLog(pool *Pool) *VerdictLog {
	return &VerdictLog{pool: pool}
}

// Insert appends a verdict. Returns ErrDuplicateKey if verdict_id exists.
func (s *VerdictLog) Insert(ctx context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.VerdictID == "" || v.AssetID == "" {
		return storage.ErrInvalidInput
	}

	checks, err := json.Marshal(v.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO screening_verdicts (
			verdict_id, asset_id, origin_signature, accepted, composite_score,
			rejection_reason, checks, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.VerdictID, v.AssetID, v.OriginSignature, v.Accepted, v.CompositeScore,
		v.RejectionReason, checks, v.EvaluatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// GetByAsset retrieves all verdicts for an asset, ordered by evaluated_at ASC.
func (s *VerdictLog) GetByAsset(ctx context.Context, assetID string) ([]*domain.VerdictRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT verdict_id, asset_id, origin_signature, accepted, composite_score,
		       rejection_reason, checks, evaluated_at
		FROM screening_verdicts
		WHERE asset_id = $1
		ORDER BY evaluated_at ASC, verdict_id ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.VerdictRecord
	for rows.Next() {
		var (
			v      domain.VerdictRecord
			checks []byte
		)
		if err := rows.Scan(
			&v.VerdictID, &v.AssetID, &v.OriginSignature, &v.Accepted, &v.CompositeScore,
			&v.RejectionReason, &checks, &v.EvaluatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(checks, &v.Checks); err != nil {
			return nil, fmt.Errorf("verdict %s: checks: %w", v.VerdictID, err)
		}
		result = append(result, &v)
	}
	return result, rows.Err()
}

var _ storage.VerdictLog = (*VerdictLog)(nil)
