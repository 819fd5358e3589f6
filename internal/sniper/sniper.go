// Package sniper drives a trading session: it consumes candidate events in
// arrival order, screens them, journals each verdict and hands accepted
// assets to the position manager, while keeping the state snapshot current.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/position"
	"solana-sniper/internal/storage"
)

// ErrInsufficientBalance is returned by Run when the wallet holds less than the minimum.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// Screener evaluates an asset. Implemented by *risk.Screen.
type Screener interface {
	Evaluate(ctx context.Context, assetID string) (*domain.SafetyVerdict, error)
}

// Positions is the slice of *position.Manager the session drives.
type Positions interface {
	HasCapacity() bool
	Open(assetID string) (domain.Position, error)
	Active() []domain.Position
	Stats() domain.Stats
	Shutdown(ctx context.Context) error
}

// BalanceReader reports the wallet's SOL balance. Implemented by *trading.RPCHoldings.
type BalanceReader interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Observer receives intake counters. Implemented by observability.Metrics.
type Observer interface {
	CandidateDetected()
	CandidateDropped()
	ActivePositions(n int)
}

type nopObserver struct{}

func (nopObserver) CandidateDetected()  {}
func (nopObserver) CandidateDropped()   {}
func (nopObserver) ActivePositions(int) {}

// Settings are the session parameters.
type Settings struct {
	DryRun           bool
	SnapshotInterval time.Duration
	MinBalance       decimal.Decimal
	RunFor           time.Duration // zero runs until the context is cancelled
}

// Deps are the collaborators of a session. Balance and Observer may be nil.
type Deps struct {
	Screen    Screener
	Positions Positions
	Verdicts  storage.VerdictLog
	Snapshots storage.SnapshotStore
	Balance   BalanceReader
	Logger    *zap.Logger
	Observer  Observer
	Now       func() time.Time
}

// Sniper is one trading session.
type Sniper struct {
	settings  Settings
	screen    Screener
	positions Positions
	verdicts  storage.VerdictLog
	snapshots storage.SnapshotStore
	balance   BalanceReader
	logger    *zap.Logger
	observer  Observer
	now       func() time.Time
	sessionID string

	mu      sync.Mutex
	intake  domain.Stats // Detected, Dropped, Rejected
	running bool
	snapMu  sync.Mutex
	last    *domain.StateSnapshot
	changed chan struct{}
}

// New creates a session with a fresh session ID.
func New(s Settings, d Deps) (*Sniper, error) {
	if d.Screen == nil || d.Positions == nil || d.Verdicts == nil || d.Snapshots == nil {
		return nil, fmt.Errorf("sniper: screen, positions, verdicts and snapshots are required")
	}
	if s.SnapshotInterval <= 0 {
		s.SnapshotInterval = 5 * time.Second
	}

	sn := &Sniper{
		settings:  s,
		screen:    d.Screen,
		positions: d.Positions,
		verdicts:  d.Verdicts,
		snapshots: d.Snapshots,
		balance:   d.Balance,
		logger:    d.Logger,
		observer:  d.Observer,
		now:       d.Now,
		sessionID: uuid.NewString(),
		changed:   make(chan struct{}, 1),
	}
	if sn.logger == nil {
		sn.logger = zap.NewNop()
	}
	if sn.observer == nil {
		sn.observer = nopObserver{}
	}
	if sn.now == nil {
		sn.now = time.Now
	}
	sn.logger = sn.logger.With(zap.String("session", sn.sessionID))
	return sn, nil
}

// SessionID identifies this session in snapshots and logs.
func (s *Sniper) SessionID() string { return s.sessionID }

// Changed requests a snapshot write. It never blocks; bursts coalesce.
// Wire it as position.Deps.OnChange.
func (s *Sniper) Changed() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// CheckBalance fails with ErrInsufficientBalance when the wallet is below the minimum.
func (s *Sniper) CheckBalance(ctx context.Context) error {
	if s.balance == nil {
		return nil
	}
	bal, err := s.balance.Balance(ctx)
	if err != nil {
		return fmt.Errorf("read wallet balance: %w", err)
	}
	s.logger.Info("wallet balance", zap.String("sol", bal.StringFixed(4)))
	if bal.LessThan(s.settings.MinBalance) {
		return fmt.Errorf("%w: have %s SOL, need %s", ErrInsufficientBalance, bal.StringFixed(4), s.settings.MinBalance)
	}
	return nil
}

// Run processes events until ctx is done, the channel closes or RunFor elapses.
// The final snapshot is written with running=false. Lifecycle goroutines are
// stopped; positions they held remain in the snapshot for the operator.
func (s *Sniper) Run(ctx context.Context, events <-chan domain.CandidateEvent) error {
	if err := s.CheckBalance(ctx); err != nil {
		return err
	}
	if s.settings.RunFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.RunFor)
		defer cancel()
	}

	s.setRunning(true)
	s.logger.Info("session started",
		zap.Bool("dry_run", s.settings.DryRun),
		zap.Duration("snapshot_interval", s.settings.SnapshotInterval))
	s.writeSnapshot(ctx)

	loopCtx, stopLoop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.snapshotLoop(loopCtx)
	}()

	defer func() {
		stopLoop()
		wg.Wait()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.positions.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("position shutdown incomplete", zap.Error(err))
		}
		s.setRunning(false)
		s.writeSnapshot(shutdownCtx)

		stats := s.Stats()
		s.logger.Info("session stopped",
			zap.Int64("detected", stats.Detected),
			zap.Int64("rejected", stats.Rejected),
			zap.Int64("executed", stats.Executed),
			zap.Int64("wins", stats.Wins),
			zap.Int64("failed", stats.Failed))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, ev); err != nil && ctx.Err() == nil {
				s.logger.Warn("candidate not traded", zap.String("mint", ev.AssetID), zap.Error(err))
			}
		}
	}
}

// Handle takes one candidate through intake, screening and reservation.
// Candidates arriving while every slot is taken are dropped, never queued.
func (s *Sniper) Handle(ctx context.Context, ev domain.CandidateEvent) error {
	s.count(func(st *domain.Stats) { st.Detected++ })
	s.observer.CandidateDetected()

	if !s.positions.HasCapacity() {
		s.drop(ev, "slots full at arrival")
		return nil
	}

	verdict, err := s.screen.Evaluate(ctx, ev.AssetID)
	if err != nil {
		if ctx.Err() == nil {
			s.count(func(st *domain.Stats) { st.Rejected++ })
		}
		return fmt.Errorf("screen: %w", err)
	}
	s.journal(ctx, ev, verdict)

	if !verdict.Accepted {
		s.count(func(st *domain.Stats) { st.Rejected++ })
		s.logger.Info("candidate rejected",
			zap.String("mint", ev.AssetID),
			zap.Int("score", verdict.CompositeScore),
			zap.String("reason", verdict.RejectionReason))
		return nil
	}

	pos, err := s.positions.Open(ev.AssetID)
	switch {
	case errors.Is(err, position.ErrSlotsFull):
		s.drop(ev, "slots filled during screening")
		return nil
	case err != nil:
		return fmt.Errorf("open position: %w", err)
	}
	s.logger.Info("position opened",
		zap.String("mint", ev.AssetID),
		zap.Int("slot", pos.SlotIndex),
		zap.Int("score", verdict.CompositeScore),
		zap.Int64("detect_to_open_ms", s.now().UnixMilli()-ev.DetectedAt))
	return nil
}

// Stats merges intake counters with the position manager's outcome counters.
func (s *Sniper) Stats() domain.Stats {
	st := s.positions.Stats()
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Detected = s.intake.Detected
	st.Dropped = s.intake.Dropped
	st.Rejected = s.intake.Rejected
	return st
}

// Snapshot builds the current session state.
func (s *Sniper) Snapshot() *domain.StateSnapshot {
	active := s.positions.Active()
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return &domain.StateSnapshot{
		SessionID:       s.sessionID,
		Running:         running,
		DryRun:          s.settings.DryRun,
		Stats:           s.Stats(),
		ActivePositions: active,
		UpdatedAt:       s.now().UnixMilli(),
	}
}

// LastSnapshot returns the most recently persisted snapshot, or nil.
func (s *Sniper) LastSnapshot() *domain.StateSnapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.last
}

func (s *Sniper) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(s.settings.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.changed:
		}
		s.writeSnapshot(ctx)
	}
}

// writeSnapshot builds and saves under one lock so saves never go backwards.
func (s *Sniper) writeSnapshot(ctx context.Context) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	snap := s.Snapshot()
	s.observer.ActivePositions(len(snap.ActivePositions))
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.Warn("snapshot write failed", zap.Error(err))
		return
	}
	s.last = snap
}

func (s *Sniper) journal(ctx context.Context, ev domain.CandidateEvent, v *domain.SafetyVerdict) {
	rec := &domain.VerdictRecord{
		VerdictID:       idhash.ComputeVerdictID(ev.AssetID, v.EvaluatedAt),
		AssetID:         ev.AssetID,
		OriginSignature: ev.OriginSignature,
		Accepted:        v.Accepted,
		CompositeScore:  v.CompositeScore,
		RejectionReason: v.RejectionReason,
		Checks:          v.Checks,
		EvaluatedAt:     v.EvaluatedAt,
	}
	err := s.verdicts.Insert(ctx, rec)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Warn("verdict journal write failed", zap.String("mint", ev.AssetID), zap.Error(err))
	}
}

func (s *Sniper) drop(ev domain.CandidateEvent, why string) {
	s.count(func(st *domain.Stats) { st.Dropped++ })
	s.observer.CandidateDropped()
	s.logger.Info("candidate dropped", zap.String("mint", ev.AssetID), zap.String("reason", why))
}

func (s *Sniper) count(fn func(*domain.Stats)) {
	s.mu.Lock()
	fn(&s.intake)
	s.mu.Unlock()
}

func (s *Sniper) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}
