package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/metrics"
	"solana-sniper/internal/storage"
)

// DefaultRecentTrades is how many trades the report lists individually.
const DefaultRecentTrades = 10

// Generator produces reports from stored data.
type Generator struct {
	journal   storage.TradeJournal
	snapshots storage.SnapshotStore // optional
	recent    int
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. snapshots may be nil.
func NewGenerator(journal storage.TradeJournal, snapshots storage.SnapshotStore) *Generator {
	return &Generator{
		journal:   journal,
		snapshots: snapshots,
		recent:    DefaultRecentTrades,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRecent sets how many recent trades are listed. Zero lists none.
func (g *Generator) WithRecent(n int) *Generator {
	if n >= 0 {
		g.recent = n
	}
	return g
}

// Generate produces a complete session report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	trades, err := g.journal.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	session, err := g.loadSession(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt:      g.now(),
		Session:          session,
		Outcomes:         metrics.Compute(trades),
		RealizedPnL:      decimal.Zero,
		CommittedCapital: decimal.Zero,
		RecentTrades:     recentTrades(trades, g.recent),
	}
	for _, t := range trades {
		r.CommittedCapital = r.CommittedCapital.Add(t.CommittedCapital)
		if t.Proceeds != nil {
			r.RealizedPnL = r.RealizedPnL.Add(t.Proceeds.Sub(t.CommittedCapital))
		}
	}
	return r, nil
}

func (g *Generator) loadSession(ctx context.Context) (*SessionSection, error) {
	if g.snapshots == nil {
		return nil, nil
	}
	snap, err := g.snapshots.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &SessionSection{
		SessionID:       snap.SessionID,
		Running:         snap.Running,
		DryRun:          snap.DryRun,
		Stats:           snap.Stats,
		ActivePositions: snap.ActivePositions,
		UpdatedAt:       snap.UpdatedAt,
	}, nil
}

// recentTrades returns the last n trades of a recorded_at ASC slice, newest first.
func recentTrades(trades []*domain.TradeRecord, n int) []*domain.TradeRecord {
	if n > len(trades) {
		n = len(trades)
	}
	out := make([]*domain.TradeRecord, 0, n)
	for i := len(trades) - 1; i >= len(trades)-n; i-- {
		out = append(out, trades[i])
	}
	return out
}
