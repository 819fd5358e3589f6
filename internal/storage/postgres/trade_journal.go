package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TradeJournal is a PostgreSQL implementation of storage.TradeJournal.
// Capital and proceeds are NUMERIC columns; they travel as text to keep
// decimal precision end to end.
type TradeJournal struct {
	pool *Pool
}

// NewTradeJournal creates a new PostgreSQL trade journal.
func NewTradeJournal(pool *Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

const tradeColumns = `trade_id, asset_id, acquisition_ref, disposal_ref, exit_reason, final_state,
	committed_capital::text, proceeds::text, reference_price, exit_price,
	pnl_percent, hold_duration_ms, recorded_at`

// Insert appends a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeJournal) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	var proceeds *string
	if t.Proceeds != nil {
		v := t.Proceeds.String()
		proceeds = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_records (
			trade_id, asset_id, acquisition_ref, disposal_ref, exit_reason, final_state,
			committed_capital, proceeds, reference_price, exit_price,
			pnl_percent, hold_duration_ms, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11, $12, $13)
	`,
		t.TradeID, t.AssetID, t.AcquisitionRef, t.DisposalRef, string(t.ExitReason), string(t.FinalState),
		t.CommittedCapital.String(), proceeds, t.ReferencePrice, t.ExitPrice,
		t.PnLPercent, t.HoldDurationMs, t.RecordedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeJournal) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trade_records WHERE trade_id = $1`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByAsset retrieves all trades for an asset, ordered by recorded_at ASC.
func (s *TradeJournal) GetByAsset(ctx context.Context, assetID string) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trade_records
		WHERE asset_id = $1
		ORDER BY recorded_at ASC, trade_id ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// GetAll retrieves every trade, ordered by recorded_at ASC.
func (s *TradeJournal) GetAll(ctx context.Context) ([]*domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trade_records
		ORDER BY recorded_at ASC, trade_id ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	defer rows.Close()

	var result []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t          domain.TradeRecord
		exitReason string
		finalState string
		capital    string
		proceeds   *string
	)
	err := row.Scan(
		&t.TradeID, &t.AssetID, &t.AcquisitionRef, &t.DisposalRef, &exitReason, &finalState,
		&capital, &proceeds, &t.ReferencePrice, &t.ExitPrice,
		&t.PnLPercent, &t.HoldDurationMs, &t.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ExitReason = domain.ExitReason(exitReason)
	t.FinalState = domain.PositionState(finalState)
	if t.CommittedCapital, err = decimal.NewFromString(capital); err != nil {
		return nil, fmt.Errorf("trade %s: committed_capital: %w", t.TradeID, err)
	}
	if proceeds != nil {
		p, err := decimal.NewFromString(*proceeds)
		if err != nil {
			return nil, fmt.Errorf("trade %s: proceeds: %w", t.TradeID, err)
		}
		t.Proceeds = &p
	}
	return &t, nil
}

var _ storage.TradeJournal = (*TradeJournal)(nil)
