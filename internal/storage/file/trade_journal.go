package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TradesFile is the journal file name inside the data directory.
const TradesFile = "trades.jsonl"

// TradeJournal implements storage.TradeJournal over a JSONL file.
// Existing records are indexed on open so duplicates are rejected across restarts.
type TradeJournal struct {
	mu      sync.RWMutex
	w       *jsonlWriter
	ids     map[string]int
	records []*domain.TradeRecord
}

// OpenTradeJournal opens (or creates on first write) dir/trades.jsonl.
func OpenTradeJournal(dir string) (*TradeJournal, error) {
	path := filepath.Join(dir, TradesFile)
	recs, err := readJSONL[domain.TradeRecord](path)
	if err != nil {
		return nil, err
	}

	j := &TradeJournal{w: newJSONLWriter(path), ids: make(map[string]int, len(recs))}
	for i := range recs {
		r := recs[i]
		if _, dup := j.ids[r.TradeID]; dup {
			continue
		}
		j.ids[r.TradeID] = len(j.records)
		j.records = append(j.records, &r)
	}
	return j, nil
}

// Insert appends a trade. Returns ErrDuplicateKey if trade_id exists.
func (j *TradeJournal) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.ids[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	if err := j.w.Write(t); err != nil {
		return err
	}
	j.ids[t.TradeID] = len(j.records)
	j.records = append(j.records, cloneTrade(t))
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (j *TradeJournal) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	i, ok := j.ids[tradeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(j.records[i]), nil
}

// GetByAsset retrieves all trades for an asset, ordered by recorded_at ASC.
func (j *TradeJournal) GetByAsset(_ context.Context, assetID string) ([]*domain.TradeRecord, error) {
	return j.filter(func(t *domain.TradeRecord) bool { return t.AssetID == assetID }), nil
}

// GetAll retrieves every trade, ordered by recorded_at ASC.
func (j *TradeJournal) GetAll(_ context.Context) ([]*domain.TradeRecord, error) {
	return j.filter(func(*domain.TradeRecord) bool { return true }), nil
}

func (j *TradeJournal) filter(keep func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []*domain.TradeRecord
	for _, t := range j.records {
		if keep(t) {
			out = append(out, cloneTrade(t))
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].RecordedAt < out[b].RecordedAt })
	return out
}

// Close closes the journal file.
func (j *TradeJournal) Close() error {
	return j.w.Close()
}

func cloneTrade(t *domain.TradeRecord) *domain.TradeRecord {
	cp := *t
	if t.Proceeds != nil {
		v := *t.Proceeds
		cp.Proceeds = &v
	}
	if t.ReferencePrice != nil {
		v := *t.ReferencePrice
		cp.ReferencePrice = &v
	}
	if t.ExitPrice != nil {
		v := *t.ExitPrice
		cp.ExitPrice = &v
	}
	return &cp
}

var _ storage.TradeJournal = (*TradeJournal)(nil)
