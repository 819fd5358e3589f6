// Package position owns the lifecycle of sniped positions: slot reservation,
// acquisition, settlement confirmation, monitored holding and disposal.
//
// State machine:
//
//	RESERVED → ACQUIRING → AWAITING_CONFIRMATION → HOLDING → DISPOSING → CLOSED
//	any non-terminal state → FAILED
//
// Every position that reaches CLOSED or FAILED is journaled exactly once and
// releases its slot.
package position

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/strategy"
	"solana-sniper/internal/trading"
)

// Manager errors
var (
	ErrSlotsFull        = errors.New("SLOTS_FULL")
	ErrAlreadyActive    = errors.New("asset already has an active position")
	ErrNotActive        = errors.New("no active position for asset")
	ErrWrongState       = errors.New("position is not in the required state")
	ErrDisposalFailed   = errors.New("disposal failed")
	ErrDisposalInFlight = errors.New("disposal already in flight")
	ErrShutdown         = errors.New("position manager is shut down")
)

// FailedError reports that a position reached FAILED during a lifecycle step.
type FailedError struct {
	AssetID string
	Reason  domain.ExitReason
	Err     error
}

func (e *FailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("position %s failed: %s", e.AssetID, e.Reason)
	}
	return fmt.Sprintf("position %s failed: %s: %v", e.AssetID, e.Reason, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Journal receives one record per terminal position.
type Journal interface {
	Insert(ctx context.Context, r *domain.TradeRecord) error
}

// Observer receives lifecycle events for metrics.
type Observer interface {
	PositionOpened()
	PositionClosed(r *domain.TradeRecord)
	DisposalFailed()
}

type nopObserver struct{}

func (nopObserver) PositionOpened()                    {}
func (nopObserver) PositionClosed(*domain.TradeRecord) {}
func (nopObserver) DisposalFailed()                    {}

// Deps are the collaborators of a Manager. Backend, Oracle, Ledger and
// Journal are required.
type Deps struct {
	Backend  trading.Backend
	Oracle   trading.PriceOracle
	Ledger   trading.LedgerStatus
	Journal  Journal
	Logger   *zap.Logger
	Observer Observer
	Now      func() time.Time
	OnChange func() // called after every state transition, outside the lock
}

type entry struct {
	pos         domain.Position
	peak        float64
	inFlight    bool // disposal call outstanding
	stopMonitor context.CancelFunc
}

// Manager drives at most Settings.MaxConcurrent positions. The active map
// and slot table are mutated only by Manager's own transition methods.
type Manager struct {
	s        Settings
	backend  trading.Backend
	oracle   trading.PriceOracle
	ledger   trading.LedgerStatus
	journal  Journal
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
	onChange func()

	mu     sync.Mutex
	active map[string]*entry
	slots  []bool
	stats  domain.Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(s Settings, d Deps) (*Manager, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if d.Backend == nil || d.Oracle == nil || d.Ledger == nil || d.Journal == nil {
		return nil, errors.New("position: backend, oracle, ledger and journal are required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.OnChange == nil {
		d.OnChange = func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		s:        s,
		backend:  d.Backend,
		oracle:   d.Oracle,
		ledger:   d.Ledger,
		journal:  d.Journal,
		logger:   d.Logger.Named("position"),
		observer: d.Observer,
		now:      d.Now,
		onChange: d.OnChange,
		active:   make(map[string]*entry),
		slots:    make([]bool, s.MaxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Reserve occupies a slot for assetID. The check and the occupation happen
// under one lock with no suspension point in between, so a concurrent
// candidate always observes the slot as taken.
func (m *Manager) Reserve(assetID string) (domain.Position, error) {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return domain.Position{}, ErrShutdown
	}
	if _, ok := m.active[assetID]; ok {
		m.mu.Unlock()
		return domain.Position{}, ErrAlreadyActive
	}
	slot := m.freeSlot()
	if slot < 0 {
		m.mu.Unlock()
		return domain.Position{}, ErrSlotsFull
	}

	m.slots[slot] = true
	e := &entry{pos: domain.Position{
		AssetID:          assetID,
		SlotIndex:        slot,
		State:            domain.StateReserved,
		ReservedAt:       m.now().UnixMilli(),
		CommittedCapital: m.s.Capital,
	}}
	m.active[assetID] = e
	pos := e.pos.Clone()
	m.mu.Unlock()

	m.logger.Info("slot reserved", zap.String("mint", assetID), zap.Int("slot", slot))
	m.onChange()
	return pos, nil
}

// Open reserves a slot and starts the lifecycle in the background.
func (m *Manager) Open(assetID string) (domain.Position, error) {
	pos, err := m.Reserve(assetID)
	if err != nil {
		return pos, err
	}
	m.Start(assetID)
	return pos, nil
}

// Start runs the lifecycle of a reserved position in its own goroutine,
// bound to the manager's lifetime.
func (m *Manager) Start(assetID string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.Run(m.ctx, assetID)
		var failed *FailedError
		switch {
		case err == nil:
		case errors.As(err, &failed):
			m.logger.Info("position failed", zap.String("mint", assetID), zap.String("reason", string(failed.Reason)), zap.Error(failed.Err))
		case errors.Is(err, context.Canceled):
			m.logger.Debug("lifecycle stopped", zap.String("mint", assetID))
		default:
			m.logger.Warn("lifecycle ended with open position", zap.String("mint", assetID), zap.Error(err))
		}
	}()
}

// Run drives a reserved position through acquisition, confirmation,
// monitoring and disposal. A nil return means the position closed.
func (m *Manager) Run(ctx context.Context, assetID string) error {
	if err := m.Acquire(ctx, assetID); err != nil {
		return err
	}
	if err := m.Confirm(ctx, assetID); err != nil {
		return err
	}
	reason, err := m.Monitor(ctx, assetID)
	if err != nil {
		return err
	}
	return m.Dispose(ctx, assetID, reason)
}

// Acquire buys the committed capital through the backend. A backend error
// fails the position with ACQUISITION_FAILED. Cancellation leaves the
// position ACQUIRING, since the order may have been submitted.
func (m *Manager) Acquire(ctx context.Context, assetID string) error {
	pos, err := m.update(assetID, func(e *entry) error {
		if e.pos.State != domain.StateReserved {
			return ErrWrongState
		}
		e.pos.State = domain.StateAcquiring
		return nil
	})
	if err != nil {
		return err
	}

	fill, err := m.backend.Acquire(ctx, assetID, pos.CommittedCapital)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.finish(assetID, domain.StateFailed, domain.ReasonAcquisitionFailed, err, nil)
		return &FailedError{AssetID: assetID, Reason: domain.ReasonAcquisitionFailed, Err: err}
	}

	_, err = m.update(assetID, func(e *entry) error {
		e.pos.State = domain.StateAwaitingConfirmation
		e.pos.AcquisitionTime = m.now().UnixMilli()
		e.pos.AcquisitionRef = fill.Ref
		if fill.Quantity != nil {
			q := *fill.Quantity
			e.pos.AcquiredQuantity = &q
		}
		m.stats.Executed++
		return nil
	})
	if err != nil {
		return err
	}

	m.observer.PositionOpened()
	m.logger.Info("acquired",
		zap.String("mint", assetID),
		zap.String("ref", fill.Ref),
		zap.String("capital", pos.CommittedCapital.String()))
	return nil
}

// Confirm polls the ledger until the acquisition settles, fails on-chain, or
// the attempt ceiling is reached. Ledger read errors count as pending.
func (m *Manager) Confirm(ctx context.Context, assetID string) error {
	pos, err := m.expect(assetID, domain.StateAwaitingConfirmation)
	if err != nil {
		return err
	}
	if pos.AcquisitionRef == "" {
		return m.failWith(assetID, domain.ReasonNoReference, nil)
	}

	for attempt := 1; ; attempt++ {
		st, err := m.ledger.SettlementStatus(ctx, pos.AcquisitionRef)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Debug("settlement status unavailable",
				zap.String("mint", assetID), zap.Int("attempt", attempt), zap.Error(err))
		case st == trading.SettlementConfirmed:
			_, err := m.update(assetID, func(e *entry) error {
				e.pos.State = domain.StateHolding
				return nil
			})
			if err == nil {
				m.logger.Info("settlement confirmed", zap.String("mint", assetID), zap.Int("attempts", attempt))
			}
			return err
		case st == trading.SettlementFailed:
			return m.failWith(assetID, domain.ReasonSettlementRejected, nil)
		}

		if attempt >= m.s.ConfirmAttempts {
			return m.failWith(assetID, domain.ReasonConfirmationTimeout,
				fmt.Errorf("no settlement after %d attempts", attempt))
		}
		if err := sleep(ctx, m.s.ConfirmInterval); err != nil {
			return err
		}
	}
}

// Monitor evaluates exit rules every poll interval until one fires. The hold
// deadline has its own timer, so TIME fires on schedule even when the oracle
// never returns a price. Ticks of one position never overlap.
func (m *Manager) Monitor(ctx context.Context, assetID string) (domain.ExitReason, error) {
	mctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pos, err := m.update(assetID, func(e *entry) error {
		if e.pos.State != domain.StateHolding {
			return ErrWrongState
		}
		e.stopMonitor = cancel
		return nil
	})
	if err != nil {
		return "", err
	}

	acquired := time.UnixMilli(pos.AcquisitionTime)
	deadlineAt := acquired.Add(m.s.MaxHold)

	deadline := time.NewTimer(deadlineAt.Sub(m.now()))
	defer deadline.Stop()
	ticker := time.NewTicker(m.s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mctx.Done():
			return "", mctx.Err()
		case <-ticker.C:
		case <-deadline.C:
		}
		reason, ok := m.tick(mctx, assetID, acquired, deadlineAt)
		if !ok && !m.now().Before(deadlineAt) {
			// The hold deadline is authoritative whatever the rule set.
			reason, ok = domain.ExitTimeout, true
		}
		if ok {
			cancel()
			m.logger.Info("exit triggered", zap.String("mint", assetID), zap.String("reason", string(reason)))
			return reason, nil
		}
	}
}

// tick runs one exit evaluation: time-based rules first, then the price
// rules when the oracle has a price for this tick.
func (m *Manager) tick(ctx context.Context, assetID string, acquired, deadlineAt time.Time) (domain.ExitReason, bool) {
	held := m.now().Sub(acquired)
	if reason, ok := strategy.Evaluate(m.s.Rules, strategy.Tick{Held: held}); ok {
		return reason, true
	}

	octx, cancel := context.WithDeadline(ctx, deadlineAt)
	price, err := m.oracle.CurrentPrice(octx, assetID)
	cancel()
	if err != nil || price <= 0 {
		m.logger.Debug("no price this tick",
			zap.String("mint", assetID), zap.Duration("held", held), zap.Error(err))
		return "", false
	}

	m.mu.Lock()
	e, ok := m.active[assetID]
	if !ok {
		m.mu.Unlock()
		return "", false
	}
	if e.pos.ReferencePrice == nil {
		ref := price
		e.pos.ReferencePrice = &ref
		e.peak = price
	}
	if price > e.peak {
		e.peak = price
	}
	last := price
	e.pos.LastPrice = &last
	t := strategy.Tick{
		Held:      held,
		Price:     price,
		HasPrice:  true,
		Reference: *e.pos.ReferencePrice,
		Peak:      e.peak,
	}
	m.mu.Unlock()

	m.logger.Debug("tick",
		zap.String("mint", assetID),
		zap.Duration("held", held),
		zap.Float64("price", price),
		zap.Float64("change_pct", t.ChangePct()))
	return strategy.Evaluate(m.s.Rules, t)
}

// Dispose sells the full held quantity. A backend failure keeps the position
// DISPOSING with its slot occupied and records the attempt; it is not
// retried automatically. A zero balance fails the position with NO_HOLDINGS.
func (m *Manager) Dispose(ctx context.Context, assetID string, reason domain.ExitReason) error {
	pos, err := m.update(assetID, func(e *entry) error {
		if e.pos.State != domain.StateHolding && e.pos.State != domain.StateDisposing {
			return ErrWrongState
		}
		if e.inFlight {
			return ErrDisposalInFlight
		}
		e.inFlight = true
		e.pos.State = domain.StateDisposing
		if e.pos.ExitReason == "" {
			e.pos.ExitReason = reason
		}
		if e.stopMonitor != nil {
			e.stopMonitor()
		}
		return nil
	})
	if err != nil {
		return err
	}

	held, err := m.backend.HeldQuantity(ctx, assetID)
	if err != nil {
		return m.disposalFailed(ctx, assetID, fmt.Errorf("held quantity: %w", err))
	}
	if !held.IsPositive() {
		return m.failWith(assetID, domain.ReasonNoHoldings, nil)
	}

	fill, err := m.backend.Dispose(ctx, assetID, trading.Amount{Quantity: held})
	if err != nil {
		return m.disposalFailed(ctx, assetID, err)
	}

	m.finish(assetID, domain.StateClosed, pos.ExitReason, nil, &fill)
	return nil
}

// RetryDispose re-attempts the disposal of a position left DISPOSING.
func (m *Manager) RetryDispose(ctx context.Context, assetID string) error {
	if _, err := m.expect(assetID, domain.StateDisposing); err != nil {
		return err
	}
	return m.Dispose(ctx, assetID, "")
}

// Abandon gives up on a position left DISPOSING and fails it with
// DISPOSAL_ABANDONED, releasing the slot.
func (m *Manager) Abandon(assetID string) error {
	pos, err := m.update(assetID, func(e *entry) error {
		if e.pos.State != domain.StateDisposing {
			return ErrWrongState
		}
		if e.inFlight {
			return ErrDisposalInFlight
		}
		return nil
	})
	if err != nil {
		return err
	}
	var cause error
	if pos.LastDisposalError != "" {
		cause = errors.New(pos.LastDisposalError)
	}
	m.finish(assetID, domain.StateFailed, domain.ReasonDisposalAbandoned, cause, nil)
	return nil
}

// Adopt takes over a position recovered from a state snapshot so it can be
// disposed. It is placed in HOLDING unless it was already DISPOSING.
func (m *Manager) Adopt(p domain.Position) error {
	m.mu.Lock()
	if _, ok := m.active[p.AssetID]; ok {
		m.mu.Unlock()
		return ErrAlreadyActive
	}
	slot := p.SlotIndex
	if slot < 0 || slot >= len(m.slots) || m.slots[slot] {
		slot = m.freeSlot()
	}
	if slot < 0 {
		m.mu.Unlock()
		return ErrSlotsFull
	}

	pos := p.Clone()
	from := pos.State
	pos.SlotIndex = slot
	if pos.State != domain.StateDisposing {
		pos.State = domain.StateHolding
	}
	m.slots[slot] = true
	m.active[pos.AssetID] = &entry{pos: pos}
	m.mu.Unlock()

	m.logger.Info("position adopted",
		zap.String("mint", pos.AssetID), zap.String("from_state", string(from)), zap.Int("slot", slot))
	m.onChange()
	return nil
}

// Get returns a copy of the active position for assetID.
func (m *Manager) Get(assetID string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[assetID]
	if !ok {
		return domain.Position{}, false
	}
	return e.pos.Clone(), true
}

// Active returns copies of all non-terminal positions ordered by slot.
func (m *Manager) Active() []domain.Position {
	m.mu.Lock()
	out := make([]domain.Position, 0, len(m.active))
	for _, e := range m.active {
		out = append(out, e.pos.Clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out
}

// ActiveCount returns the number of non-terminal positions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// HasCapacity reports whether a slot is currently free.
func (m *Manager) HasCapacity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeSlot() >= 0 && m.ctx.Err() == nil
}

// Stats returns the lifecycle counters. Detection counters are left zero.
func (m *Manager) Stats() domain.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Shutdown cancels every running lifecycle and waits for them to return.
// Positions that were not terminal stay active, so the final snapshot shows
// what still needs operator attention.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) freeSlot() int {
	for i, used := range m.slots {
		if !used {
			return i
		}
	}
	return -1
}

// update applies fn to the entry under the lock and returns a copy of the
// result. onChange fires when fn succeeds.
func (m *Manager) update(assetID string, fn func(e *entry) error) (domain.Position, error) {
	m.mu.Lock()
	e, ok := m.active[assetID]
	if !ok {
		m.mu.Unlock()
		return domain.Position{}, ErrNotActive
	}
	if err := fn(e); err != nil {
		m.mu.Unlock()
		return domain.Position{}, fmt.Errorf("%s (%s): %w", assetID, e.pos.State, err)
	}
	pos := e.pos.Clone()
	m.mu.Unlock()

	m.onChange()
	return pos, nil
}

func (m *Manager) expect(assetID string, state domain.PositionState) (domain.Position, error) {
	pos, ok := m.Get(assetID)
	if !ok {
		return pos, ErrNotActive
	}
	if pos.State != state {
		return pos, fmt.Errorf("%s is %s, want %s: %w", assetID, pos.State, state, ErrWrongState)
	}
	return pos, nil
}

func (m *Manager) failWith(assetID string, reason domain.ExitReason, cause error) error {
	m.finish(assetID, domain.StateFailed, reason, cause, nil)
	return &FailedError{AssetID: assetID, Reason: reason, Err: cause}
}

func (m *Manager) disposalFailed(ctx context.Context, assetID string, cause error) error {
	cancelled := ctx.Err() != nil
	_, _ = m.update(assetID, func(e *entry) error {
		e.inFlight = false
		if !cancelled {
			e.pos.DisposalAttempts++
			e.pos.LastDisposalError = cause.Error()
		}
		return nil
	})
	if cancelled {
		return ctx.Err()
	}

	m.observer.DisposalFailed()
	m.logger.Warn("disposal failed, position kept open",
		zap.String("mint", assetID), zap.Error(cause))
	return fmt.Errorf("%w: %s: %v", ErrDisposalFailed, assetID, cause)
}

// finish moves a position to a terminal state. It is a no-op when the
// position already left the active set, which makes journaling exactly-once.
func (m *Manager) finish(assetID string, state domain.PositionState, reason domain.ExitReason, cause error, fill *trading.Fill) {
	now := m.now()

	m.mu.Lock()
	e, ok := m.active[assetID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.active, assetID)
	m.slots[e.pos.SlotIndex] = false
	if e.stopMonitor != nil {
		e.stopMonitor()
	}
	e.inFlight = false
	e.pos.State = state
	e.pos.ExitReason = reason
	if fill != nil {
		e.pos.DisposalRef = fill.Ref
	}

	rec := buildRecord(e.pos, fill, now)
	switch {
	case state == domain.StateFailed:
		m.stats.Failed++
	case reason == domain.ExitTakeProfit:
		m.stats.TakeProfits++
	case reason == domain.ExitStopLoss:
		m.stats.StopLosses++
	case reason == domain.ExitTimeout:
		m.stats.Timeouts++
	}
	if rec.OutcomeClass() == domain.OutcomeClassWin {
		m.stats.Wins++
	}
	m.mu.Unlock()

	fields := []zap.Field{
		zap.String("mint", assetID),
		zap.String("state", string(state)),
		zap.String("reason", string(reason)),
		zap.Float64("pnl_pct", rec.PnLPercent),
		zap.Int64("hold_ms", rec.HoldDurationMs),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	m.logger.Info("position finished", fields...)

	// The record must survive a cancelled lifecycle context.
	jctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.journal.Insert(jctx, rec); err != nil {
		m.logger.Error("journal insert failed", zap.String("trade_id", rec.TradeID), zap.Error(err))
	}

	m.observer.PositionClosed(rec)
	m.onChange()
}

// buildRecord computes realized P&L: proceeds against committed capital when
// the backend reported proceeds, otherwise exit price against reference
// price, otherwise zero. Failed positions always record zero.
func buildRecord(p domain.Position, fill *trading.Fill, now time.Time) *domain.TradeRecord {
	rec := &domain.TradeRecord{
		TradeID:          idhash.ComputeTradeID(p.AssetID, p.SlotIndex, p.AcquisitionRef, p.ReservedAt),
		AssetID:          p.AssetID,
		AcquisitionRef:   p.AcquisitionRef,
		DisposalRef:      p.DisposalRef,
		ExitReason:       p.ExitReason,
		FinalState:       p.State,
		CommittedCapital: p.CommittedCapital,
		ReferencePrice:   p.Clone().ReferencePrice,
		RecordedAt:       now.UnixMilli(),
	}
	if p.AcquisitionTime > 0 {
		rec.HoldDurationMs = now.UnixMilli() - p.AcquisitionTime
	}
	if p.State != domain.StateClosed {
		return rec
	}

	rec.ExitPrice = p.Clone().LastPrice
	if fill != nil && fill.Proceeds != nil {
		proceeds := *fill.Proceeds
		rec.Proceeds = &proceeds
	}

	switch {
	case rec.Proceeds != nil && p.CommittedCapital.IsPositive():
		rec.PnLPercent = rec.Proceeds.Sub(p.CommittedCapital).
			Div(p.CommittedCapital).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	case rec.ReferencePrice != nil && rec.ExitPrice != nil && *rec.ReferencePrice > 0:
		rec.PnLPercent = (*rec.ExitPrice - *rec.ReferencePrice) / *rec.ReferencePrice * 100
	}
	return rec
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
