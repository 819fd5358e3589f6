package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage/memory"
)

var fixedClock = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func setupTestData(t *testing.T) (*memory.TradeJournal, *memory.SnapshotStore) {
	ctx := context.Background()

	journal := memory.NewTradeJournal()
	snapshots := memory.NewSnapshotStore()

	capital := decimal.RequireFromString("0.01")
	trades := []*domain.TradeRecord{
		{TradeID: "t1", AssetID: "mint1", FinalState: domain.StateClosed, ExitReason: domain.ExitTakeProfit,
			CommittedCapital: capital, Proceeds: ptr(decimal.RequireFromString("0.012")),
			PnLPercent: 20, HoldDurationMs: 4000, RecordedAt: 1000},
		{TradeID: "t2", AssetID: "mint2", FinalState: domain.StateClosed, ExitReason: domain.ExitTimeout,
			CommittedCapital: capital, ReferencePrice: ptr(1.0), ExitPrice: ptr(0.95),
			PnLPercent: -5, HoldDurationMs: 10000, RecordedAt: 2000},
		{TradeID: "t3", AssetID: "mint3", FinalState: domain.StateFailed, ExitReason: domain.ReasonAcquisitionFailed,
			CommittedCapital: capital, RecordedAt: 3000},
	}
	for _, tr := range trades {
		if err := journal.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert trade failed: %v", err)
		}
	}

	snap := &domain.StateSnapshot{
		SessionID: "session-1",
		Running:   false,
		DryRun:    true,
		Stats:     domain.Stats{Detected: 7, Rejected: 4, Executed: 2, Wins: 1, TakeProfits: 1, Timeouts: 1, Failed: 1},
		ActivePositions: []domain.Position{
			{AssetID: "mint4", SlotIndex: 0, State: domain.StateHolding, CommittedCapital: capital, ReferencePrice: ptr(2.5)},
		},
		UpdatedAt: 4000,
	}
	if err := snapshots.Save(ctx, snap); err != nil {
		t.Fatalf("Save snapshot failed: %v", err)
	}

	return journal, snapshots
}

func TestGenerator_Generate(t *testing.T) {
	journal, snapshots := setupTestData(t)

	r, err := NewGenerator(journal, snapshots).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("expected generated at %v, got %v", fixedClock(), r.GeneratedAt)
	}
	if r.Session == nil || r.Session.SessionID != "session-1" {
		t.Fatalf("expected session-1, got %+v", r.Session)
	}
	if r.Session.Stats.Detected != 7 {
		t.Errorf("expected 7 detected, got %d", r.Session.Stats.Detected)
	}
	if r.Outcomes.TotalTrades != 3 || r.Outcomes.Closed != 2 || r.Outcomes.Failed != 1 {
		t.Errorf("unexpected outcomes: %+v", r.Outcomes)
	}
	if r.Outcomes.WinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %f", r.Outcomes.WinRate)
	}
	if !r.RealizedPnL.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("expected realized 0.002, got %s", r.RealizedPnL)
	}
	if !r.CommittedCapital.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("expected committed 0.03, got %s", r.CommittedCapital)
	}
	if len(r.RecentTrades) != 3 || r.RecentTrades[0].TradeID != "t3" {
		t.Errorf("expected newest trade first, got %d trades", len(r.RecentTrades))
	}
}

func TestGenerator_WithoutSnapshot(t *testing.T) {
	journal, _ := setupTestData(t)

	r, err := NewGenerator(journal, memory.NewSnapshotStore()).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.Session != nil {
		t.Errorf("expected no session, got %+v", r.Session)
	}

	r, err = NewGenerator(journal, nil).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate without snapshot store failed: %v", err)
	}
	if r.Session != nil {
		t.Errorf("expected no session, got %+v", r.Session)
	}
}

func TestGenerator_WithRecent(t *testing.T) {
	journal, snapshots := setupTestData(t)

	r, err := NewGenerator(journal, snapshots).WithRecent(1).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(r.RecentTrades) != 1 || r.RecentTrades[0].TradeID != "t3" {
		t.Errorf("expected only t3, got %+v", r.RecentTrades)
	}
}

func TestRenderMarkdown(t *testing.T) {
	journal, snapshots := setupTestData(t)
	r, err := NewGenerator(journal, snapshots).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Session Report",
		"Generated: 2025-01-15T12:00:00Z",
		"| Session | session-1 |",
		"| Mode | DRY RUN |",
		"| Status | STOPPED |",
		"| Detected | 7 |",
		"### Active Positions",
		"| mint4 | 0 | HOLDING | 0.01 | 2.5 | - |",
		"| Win Rate | 50.00% |",
		"| Realized P&L | 0.002 SOL |",
		"| mint2 | CLOSED | TIME | -5.00% | 10000ms |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	r, err := NewGenerator(memory.NewTradeJournal(), nil).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"No session snapshot available.",
		"No trades recorded.",
		"No recent trades.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderTradesCSV(t *testing.T) {
	journal, _ := setupTestData(t)
	trades, err := journal.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	out := RenderTradesCSV(trades)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "trade_id,asset_id,final_state") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "t1,mint1,CLOSED,TP,WIN,0.01,0.012,,,20.000000,4000,1000") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "t2,mint2,CLOSED,TIME,LOSS,0.01,,1,0.95,-5.000000") {
		t.Errorf("unexpected second row: %s", lines[2])
	}
}
