package sniper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/position"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/strategy"
	"solana-sniper/internal/trading"
)

// --- fakes ---

type fakeScreen struct {
	mu       sync.Mutex
	accepted map[string]bool
	err      error
	calls    int
}

func (f *fakeScreen) Evaluate(_ context.Context, assetID string) (*domain.SafetyVerdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v := &domain.SafetyVerdict{
		AssetID:     assetID,
		Accepted:    f.accepted[assetID],
		Checks:      map[string]domain.RiskCheckResult{},
		EvaluatedAt: 1000,
	}
	if v.Accepted {
		v.CompositeScore = 80
	} else {
		v.CompositeScore = 10
		v.RejectionReason = "low score: 10 < 60"
	}
	return v, nil
}

type fakePositions struct {
	mu        sync.Mutex
	full      bool
	openErr   error
	opened    []string
	stats     domain.Stats
	shutdowns int
}

func (p *fakePositions) HasCapacity() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.full
}

func (p *fakePositions) Open(assetID string) (domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return domain.Position{}, p.openErr
	}
	p.opened = append(p.opened, assetID)
	return domain.Position{AssetID: assetID, State: domain.StateReserved}, nil
}

func (p *fakePositions) Active() []domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Position, 0, len(p.opened))
	for _, a := range p.opened {
		out = append(out, domain.Position{AssetID: a, State: domain.StateHolding})
	}
	return out
}

func (p *fakePositions) Stats() domain.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *fakePositions) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return nil
}

type fixedBalance struct {
	sol decimal.Decimal
	err error
}

func (b fixedBalance) Balance(context.Context) (decimal.Decimal, error) { return b.sol, b.err }

type countingSnapshots struct {
	*memory.SnapshotStore
	mu    sync.Mutex
	saves int
}

func (c *countingSnapshots) Save(ctx context.Context, s *domain.StateSnapshot) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.SnapshotStore.Save(ctx, s)
}

func (c *countingSnapshots) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

type harness struct {
	sn        *Sniper
	screen    *fakeScreen
	positions *fakePositions
	verdicts  *memory.VerdictLog
	snapshots *countingSnapshots
}

func newHarness(t *testing.T, s Settings, balance BalanceReader) *harness {
	t.Helper()
	h := &harness{
		screen:    &fakeScreen{accepted: map[string]bool{}},
		positions: &fakePositions{},
		verdicts:  memory.NewVerdictLog(),
		snapshots: &countingSnapshots{SnapshotStore: memory.NewSnapshotStore()},
	}
	sn, err := New(s, Deps{
		Screen:    h.screen,
		Positions: h.positions,
		Verdicts:  h.verdicts,
		Snapshots: h.snapshots,
		Balance:   balance,
		Logger:    zaptest.NewLogger(t),
		Now:       func() time.Time { return time.UnixMilli(5000) },
	})
	require.NoError(t, err)
	h.sn = sn
	return h
}

func event(mint string) domain.CandidateEvent {
	return domain.CandidateEvent{AssetID: mint, OriginSignature: "sig-" + mint, DetectedAt: 4000, Source: domain.SourceLaunchFeed}
}

// --- tests ---

func TestHandle_AcceptedOpensAndJournals(t *testing.T) {
	h := newHarness(t, Settings{}, nil)
	h.screen.accepted["mint1"] = true
	ctx := context.Background()

	require.NoError(t, h.sn.Handle(ctx, event("mint1")))

	assert.Equal(t, []string{"mint1"}, h.positions.opened)
	stats := h.sn.Stats()
	assert.Equal(t, int64(1), stats.Detected)
	assert.Zero(t, stats.Rejected)

	verdicts, err := h.verdicts.GetByAsset(ctx, "mint1")
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, idhash.ComputeVerdictID("mint1", 1000), verdicts[0].VerdictID)
	assert.Equal(t, "sig-mint1", verdicts[0].OriginSignature)
	assert.True(t, verdicts[0].Accepted)
}

func TestHandle_RejectedIsJournaledNotOpened(t *testing.T) {
	h := newHarness(t, Settings{}, nil)
	ctx := context.Background()

	require.NoError(t, h.sn.Handle(ctx, event("mint1")))
	// A cached verdict repeats its ID; the duplicate is tolerated.
	require.NoError(t, h.sn.Handle(ctx, event("mint1")))

	assert.Empty(t, h.positions.opened)
	assert.Equal(t, int64(2), h.sn.Stats().Rejected)

	verdicts, _ := h.verdicts.GetByAsset(ctx, "mint1")
	require.Len(t, verdicts, 1)
	assert.Equal(t, "low score: 10 < 60", verdicts[0].RejectionReason)
}

func TestHandle_DropsWhenSlotsFull(t *testing.T) {
	h := newHarness(t, Settings{}, nil)
	h.positions.full = true
	h.screen.accepted["mint1"] = true

	require.NoError(t, h.sn.Handle(context.Background(), event("mint1")))

	assert.Zero(t, h.screen.calls, "no screening for a dropped candidate")
	stats := h.sn.Stats()
	assert.Equal(t, int64(1), stats.Detected)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestHandle_SlotsFilledDuringScreening(t *testing.T) {
	h := newHarness(t, Settings{}, nil)
	h.positions.openErr = position.ErrSlotsFull
	h.screen.accepted["mint1"] = true

	require.NoError(t, h.sn.Handle(context.Background(), event("mint1")))
	assert.Equal(t, int64(1), h.sn.Stats().Dropped)
}

func TestHandle_ScreenError(t *testing.T) {
	h := newHarness(t, Settings{}, nil)
	h.screen.err = errors.New("boom")

	err := h.sn.Handle(context.Background(), event("mint1"))
	require.Error(t, err)
	assert.Equal(t, int64(1), h.sn.Stats().Rejected)
}

func TestRun_InsufficientBalance(t *testing.T) {
	h := newHarness(t, Settings{MinBalance: decimal.RequireFromString("0.1")}, fixedBalance{sol: decimal.RequireFromString("0.05")})

	err := h.sn.Run(context.Background(), make(chan domain.CandidateEvent))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, h.snapshots.count(), "nothing written before the gate passes")
}

func TestRun_FinalSnapshotStopped(t *testing.T) {
	h := newHarness(t, Settings{SnapshotInterval: time.Hour, DryRun: true}, fixedBalance{sol: decimal.NewFromInt(1)})
	h.screen.accepted["mint2"] = true
	h.positions.stats = domain.Stats{Executed: 3, Wins: 2}

	events := make(chan domain.CandidateEvent, 2)
	events <- event("mint1")
	events <- event("mint2")
	close(events)

	require.NoError(t, h.sn.Run(context.Background(), events))

	snap, err := h.snapshots.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.True(t, snap.DryRun)
	assert.Equal(t, h.sn.SessionID(), snap.SessionID)
	assert.Equal(t, int64(2), snap.Stats.Detected)
	assert.Equal(t, int64(1), snap.Stats.Rejected)
	assert.Equal(t, int64(3), snap.Stats.Executed)
	require.Len(t, snap.ActivePositions, 1)
	assert.Equal(t, "mint2", snap.ActivePositions[0].AssetID)
	assert.Equal(t, 1, h.positions.shutdowns)
	assert.Equal(t, snap, h.sn.LastSnapshot())
}

func TestRun_ChangedWritesSnapshot(t *testing.T) {
	h := newHarness(t, Settings{SnapshotInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sn.Run(ctx, make(chan domain.CandidateEvent)) }()

	require.Eventually(t, func() bool { return h.snapshots.count() >= 1 }, time.Second, 5*time.Millisecond)
	before := h.snapshots.count()
	h.sn.Changed()
	require.Eventually(t, func() bool { return h.snapshots.count() > before }, time.Second, 5*time.Millisecond)

	snap, err := h.snapshots.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Running)

	cancel()
	require.NoError(t, <-done)
	snap, _ = h.snapshots.Load(context.Background())
	assert.False(t, snap.Running)
}

func TestRun_RunForStopsSession(t *testing.T) {
	h := newHarness(t, Settings{RunFor: 20 * time.Millisecond}, nil)

	start := time.Now()
	require.NoError(t, h.sn.Run(context.Background(), make(chan domain.CandidateEvent)))
	assert.Less(t, time.Since(start), 2*time.Second)
}

type steadyOracle struct{ price float64 }

func (o steadyOracle) CurrentPrice(context.Context, string) (float64, error) { return o.price, nil }

// The session, the real position manager and the dry-run backend together
// take one candidate from detection to a journaled TIME exit.
func TestSession_DryRunEndToEnd(t *testing.T) {
	logger := zaptest.NewLogger(t)
	backend := trading.NewDryRunBackend(steadyOracle{price: trading.SimulatedBasePrice}, trading.WithLatency(0, 0))
	journal := memory.NewTradeJournal()

	var sn *Sniper
	mgr, err := position.NewManager(position.Settings{
		Capital:         decimal.RequireFromString("0.01"),
		MaxConcurrent:   1,
		ConfirmInterval: time.Millisecond,
		ConfirmAttempts: 3,
		PollInterval:    5 * time.Millisecond,
		MaxHold:         40 * time.Millisecond,
		Rules:           []strategy.ExitRule{strategy.NewTakeProfit(10), strategy.NewTimeout(40 * time.Millisecond)},
	}, position.Deps{
		Backend:  backend,
		Oracle:   steadyOracle{price: trading.SimulatedBasePrice},
		Ledger:   backend,
		Journal:  journal,
		Logger:   logger,
		OnChange: func() { sn.Changed() },
	})
	require.NoError(t, err)

	screen := &fakeScreen{accepted: map[string]bool{"mint1": true}}
	snapshots := memory.NewSnapshotStore()
	sn, err = New(Settings{SnapshotInterval: 10 * time.Millisecond, DryRun: true}, Deps{
		Screen:    screen,
		Positions: mgr,
		Verdicts:  memory.NewVerdictLog(),
		Snapshots: snapshots,
		Logger:    logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan domain.CandidateEvent, 1)
	events <- event("mint1")
	done := make(chan error, 1)
	go func() { done <- sn.Run(ctx, events) }()

	require.Eventually(t, func() bool {
		all, _ := journal.GetAll(context.Background())
		return len(all) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	all, _ := journal.GetAll(context.Background())
	assert.Equal(t, domain.ExitTimeout, all[0].ExitReason)
	assert.Equal(t, domain.StateClosed, all[0].FinalState)

	snap, err := snapshots.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Equal(t, int64(1), snap.Stats.Detected)
	assert.Equal(t, int64(1), snap.Stats.Executed)
	assert.Equal(t, int64(1), snap.Stats.Timeouts)
	assert.Empty(t, snap.ActivePositions)
}
