// Package discovery turns the pump.fun program log stream into candidate
// events: launch instructions are recognised from logs, the mint is resolved
// from the transaction and each mint is admitted once.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/solana"
)

// Resolution errors.
var (
	ErrTransactionUnavailable = errors.New("transaction unavailable")
	ErrLaunchFailed           = errors.New("launch transaction failed on chain")
	ErrMintNotFound           = errors.New("mint not found in account keys")
)

// TransactionSource fetches confirmed transactions.
// Implemented by *rpcpool.Pool.
type TransactionSource interface {
	Transaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// FeedOption configures a LaunchFeed.
type FeedOption func(*LaunchFeed)

// WithFeedLogger sets the logger.
func WithFeedLogger(l *zap.Logger) FeedOption {
	return func(f *LaunchFeed) { f.logger = l }
}

// WithFeedClock overrides the wall clock stamped on events.
func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *LaunchFeed) { f.now = now }
}

// WithProgram overrides the watched launch program.
func WithProgram(id string) FeedOption {
	return func(f *LaunchFeed) { f.program = id }
}

// WithResolveRetry sets how often a not-yet-visible transaction is re-fetched.
func WithResolveRetry(attempts int, delay time.Duration) FeedOption {
	return func(f *LaunchFeed) {
		f.resolveAttempts = attempts
		f.resolveDelay = delay
	}
}

// LaunchFeed emits a CandidateEvent per newly launched mint, in arrival order.
type LaunchFeed struct {
	ws       solana.WSClient
	txs      TransactionSource
	detector *Detector
	logger   *zap.Logger
	now      func() time.Time

	program         string
	resolveAttempts int
	resolveDelay    time.Duration
}

// NewLaunchFeed creates a feed over ws, resolving mints through txs.
func NewLaunchFeed(ws solana.WSClient, txs TransactionSource, detector *Detector, opts ...FeedOption) *LaunchFeed {
	f := &LaunchFeed{
		ws:              ws,
		txs:             txs,
		detector:        detector,
		logger:          zap.NewNop(),
		now:             time.Now,
		program:         solana.PumpFunProgram,
		resolveAttempts: 3,
		resolveDelay:    500 * time.Millisecond,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Start subscribes to the program's logs. The returned channel is closed when
// ctx is done or the subscription ends.
func (f *LaunchFeed) Start(ctx context.Context) (<-chan domain.CandidateEvent, error) {
	warmed, err := f.detector.Warm(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm seen mints: %w", err)
	}

	notes, err := f.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{f.program}})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s logs: %w", f.program, err)
	}
	f.logger.Info("launch feed started",
		zap.String("program", f.program),
		zap.Int("seen_mints", warmed))

	out := make(chan domain.CandidateEvent, 64)
	go func() {
		defer close(out)
		for n := range notes {
			ev, ok := f.Process(ctx, n)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		f.logger.Info("launch feed stopped")
	}()
	return out, nil
}

// Process turns one log notification into a candidate. ok is false when the
// notification is not a launch, cannot be resolved, or repeats a seen mint.
func (f *LaunchFeed) Process(ctx context.Context, n solana.LogNotification) (domain.CandidateEvent, bool) {
	if n.Err != nil || !IsCreate(n.Logs) {
		return domain.CandidateEvent{}, false
	}

	mint, err := f.resolve(ctx, n.Signature)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Warn("unresolved launch",
				zap.String("signature", n.Signature),
				zap.Error(err))
		}
		return domain.CandidateEvent{}, false
	}

	fresh, err := f.detector.Admit(ctx, mint)
	if err != nil {
		f.logger.Warn("seen-mint lookup failed", zap.String("mint", mint), zap.Error(err))
		return domain.CandidateEvent{}, false
	}
	if !fresh {
		return domain.CandidateEvent{}, false
	}
	if err := f.detector.Checkpoint(ctx, n.Slot, n.Signature); err != nil {
		f.logger.Warn("checkpoint failed", zap.Error(err))
	}

	ev := domain.CandidateEvent{
		AssetID:         mint,
		OriginSignature: n.Signature,
		DetectedAtSlot:  n.Slot,
		DetectedAt:      f.now().UnixMilli(),
		Source:          domain.SourceLaunchFeed,
	}
	f.logger.Info("launch detected",
		zap.String("mint", mint),
		zap.String("candidate_id", idhash.ComputeCandidateID(ev)),
		zap.Int64("slot", n.Slot))
	return ev, true
}

func (f *LaunchFeed) resolve(ctx context.Context, signature string) (string, error) {
	attempts := f.resolveAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var tx *solana.Transaction
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		tx, lastErr = f.txs.Transaction(ctx, signature)
		if lastErr == nil && tx != nil {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.resolveDelay):
			}
		}
	}
	if tx == nil {
		if lastErr != nil {
			return "", fmt.Errorf("%w: %v", ErrTransactionUnavailable, lastErr)
		}
		return "", ErrTransactionUnavailable
	}

	if tx.Meta != nil && tx.Meta.Err != nil {
		return "", ErrLaunchFailed
	}
	if tx.Message == nil {
		return "", ErrMintNotFound
	}
	mint, ok := ResolveMint(tx.Message.AccountKeys)
	if !ok {
		return "", ErrMintNotFound
	}
	return mint, nil
}
