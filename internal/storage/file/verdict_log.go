package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// VerdictsFile is the verdict log file name inside the data directory.
const VerdictsFile = "verdicts.jsonl"

// VerdictLog implements storage.VerdictLog over a JSONL file.
type VerdictLog struct {
	mu      sync.RWMutex
	w       *jsonlWriter
	ids     map[string]struct{}
	byAsset map[string][]domain.VerdictRecord
}

// OpenVerdictLog opens (or creates on first write) dir/verdicts.jsonl.
func OpenVerdictLog(dir string) (*VerdictLog, error) {
	path := filepath.Join(dir, VerdictsFile)
	recs, err := readJSONL[domain.VerdictRecord](path)
	if err != nil {
		return nil, err
	}

	l := &VerdictLog{
		w:       newJSONLWriter(path),
		ids:     make(map[string]struct{}, len(recs)),
		byAsset: make(map[string][]domain.VerdictRecord),
	}
	for _, v := range recs {
		if _, dup := l.ids[v.VerdictID]; dup {
			continue
		}
		l.ids[v.VerdictID] = struct{}{}
		l.byAsset[v.AssetID] = append(l.byAsset[v.AssetID], v)
	}
	return l, nil
}

// Insert appends a verdict. Returns ErrDuplicateKey if verdict_id exists.
func (l *VerdictLog) Insert(_ context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.VerdictID == "" || v.AssetID == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.ids[v.VerdictID]; exists {
		return storage.ErrDuplicateKey
	}
	if err := l.w.Write(v); err != nil {
		return err
	}
	l.ids[v.VerdictID] = struct{}{}
	l.byAsset[v.AssetID] = append(l.byAsset[v.AssetID], *v)
	return nil
}

// GetByAsset retrieves all verdicts for an asset, ordered by evaluated_at ASC.
// Returned records share check maps with the log and must not be mutated.
func (l *VerdictLog) GetByAsset(_ context.Context, assetID string) ([]*domain.VerdictRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.VerdictRecord, 0, len(l.byAsset[assetID]))
	for i := range l.byAsset[assetID] {
		v := l.byAsset[assetID][i]
		out = append(out, &v)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].EvaluatedAt < out[b].EvaluatedAt })
	return out, nil
}

// Close closes the log file.
func (l *VerdictLog) Close() error {
	return l.w.Close()
}

var _ storage.VerdictLog = (*VerdictLog)(nil)
