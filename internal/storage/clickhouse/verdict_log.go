package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// VerdictLog is a ClickHouse implementation of storage.VerdictLog, used as
// the analytics copy of screening decisions. MergeTree does not enforce
// uniqueness, so Insert checks for an existing verdict_id first.
type VerdictLog struct {
	conn *Conn
}

// NewVerdictLog creates a new ClickHouse verdict log.
func NewVerdictLog(conn *Conn) *VerdictLog {
	return &VerdictLog{conn: conn}
}

// Insert appends a verdict. Returns ErrDuplicateKey if verdict_id exists.
func (s *VerdictLog) Insert(ctx context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.VerdictID == "" || v.AssetID == "" {
		return storage.ErrInvalidInput
	}

	var count uint64
	if err := s.conn.QueryRow(ctx,
		`SELECT count() FROM screening_verdicts WHERE verdict_id = ?`, v.VerdictID,
	).Scan(&count); err != nil {
		return fmt.Errorf("check verdict existence: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	checksJSON, err := json.Marshal(v.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	names := make([]string, 0, len(v.Checks))
	for name := range v.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	outcomes := make([]string, len(names))
	for i, name := range names {
		outcomes[i] = string(v.Checks[name].Outcome)
	}

	var accepted uint8
	if v.Accepted {
		accepted = 1
	}

	return s.conn.Exec(ctx, `
		INSERT INTO screening_verdicts (
			verdict_id, asset_id, origin_signature, accepted, composite_score,
			rejection_reason, check_names, check_outcomes, checks_json, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.VerdictID, v.AssetID, v.OriginSignature, accepted, uint8(v.CompositeScore),
		v.RejectionReason, names, outcomes, string(checksJSON), uint64(v.EvaluatedAt))
}

// GetByAsset retrieves all verdicts for an asset, ordered by evaluated_at ASC.
func (s *VerdictLog) GetByAsset(ctx context.Context, assetID string) ([]*domain.VerdictRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT verdict_id, asset_id, origin_signature, accepted, composite_score,
		       rejection_reason, checks_json, evaluated_at
		FROM screening_verdicts FINAL
		WHERE asset_id = ?
		ORDER BY evaluated_at ASC, verdict_id ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.VerdictRecord
	for rows.Next() {
		var (
			v           domain.VerdictRecord
			accepted    uint8
			score       uint8
			checksJSON  string
			evaluatedAt uint64
		)
		if err := rows.Scan(
			&v.VerdictID, &v.AssetID, &v.OriginSignature, &accepted, &score,
			&v.RejectionReason, &checksJSON, &evaluatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(checksJSON), &v.Checks); err != nil {
			return nil, fmt.Errorf("verdict %s: checks: %w", v.VerdictID, err)
		}
		v.Accepted = accepted == 1
		v.CompositeScore = int(score)
		v.EvaluatedAt = int64(evaluatedAt)
		result = append(result, &v)
	}
	return result, rows.Err()
}

var _ storage.VerdictLog = (*VerdictLog)(nil)
