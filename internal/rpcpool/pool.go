// Package rpcpool spreads Solana RPC reads across several endpoints and
// rotates past endpoints that report rate limiting.
package rpcpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/errkind"
	"solana-sniper/internal/solana"
)

// ErrNoEndpoints is returned by New when no endpoint URLs are configured.
var ErrNoEndpoints = errors.New("rpcpool: at least one endpoint required")

// Endpoint is one configured RPC endpoint.
type Endpoint struct {
	URL    string
	Client solana.RPCClient
	index  int
}

// Index is the endpoint's position in the configured list.
func (e *Endpoint) Index() int { return e.index }

// Observer receives rotation events. Implemented by observability.Metrics.
type Observer interface {
	EndpointUsed(url string)
	EndpointRateLimited(url string)
}

type nopObserver struct{}

func (nopObserver) EndpointUsed(string)        {}
func (nopObserver) EndpointRateLimited(string) {}

// Option configures a Pool.
type Option func(*Pool)

// WithClientFactory sets how clients are built from endpoint URLs.
func WithClientFactory(f func(url string) solana.RPCClient) Option {
	return func(p *Pool) { p.factory = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithObserver sets the rotation observer.
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// WithMaxAttempts sets the attempt ceiling used by the pool's own convenience reads.
func WithMaxAttempts(n int) Option {
	return func(p *Pool) { p.maxAttempts = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// Pool is a fixed set of endpoints visited in round-robin order.
// The cursor is only advanced by Next; the primary endpoint never changes.
type Pool struct {
	endpoints   []*Endpoint
	factory     func(url string) solana.RPCClient
	logger      *zap.Logger
	observer    Observer
	maxAttempts int
	now         func() time.Time

	mu     sync.Mutex
	cursor int
	states []domain.EndpointState
}

// New builds a pool over urls. urls[0] is the primary endpoint.
func New(urls []string, opts ...Option) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoEndpoints
	}

	p := &Pool{
		factory: func(url string) solana.RPCClient {
			return solana.NewHTTPClient(url)
		},
		logger:      zap.NewNop(),
		observer:    nopObserver{},
		maxAttempts: len(urls),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 1
	}

	p.endpoints = make([]*Endpoint, len(urls))
	p.states = make([]domain.EndpointState, len(urls))
	for i, url := range urls {
		p.endpoints[i] = &Endpoint{URL: url, Client: p.factory(url), index: i}
		p.states[i] = domain.EndpointState{URL: url, Primary: i == 0}
	}
	return p, nil
}

// Len returns the number of endpoints.
func (p *Pool) Len() int { return len(p.endpoints) }

// Next returns the next endpoint in round-robin order and advances the cursor.
func (p *Pool) Next() *Endpoint {
	p.mu.Lock()
	e := p.endpoints[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.endpoints)
	st := &p.states[e.index]
	st.LastUsedAt = p.now().UnixMilli()
	st.Uses++
	p.mu.Unlock()

	p.observer.EndpointUsed(e.URL)
	return e
}

// Primary returns the fixed endpoint used for read-after-write consistency.
func (p *Pool) Primary() *Endpoint {
	return p.endpoints[0]
}

// States returns a snapshot of per-endpoint usage.
func (p *Pool) States() []domain.EndpointState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EndpointState, len(p.states))
	copy(out, p.states)
	return out
}

func (p *Pool) markRateLimited(e *Endpoint) {
	p.mu.Lock()
	p.states[e.index].RateLimited++
	p.mu.Unlock()
	p.observer.EndpointRateLimited(e.URL)
}

// WithRetry runs op against Next(). A rate-limited failure is retried at once
// on the following endpoint, up to maxAttempts in total. Any other failure is
// returned immediately. After the last attempt the last error is returned.
func WithRetry[T any](ctx context.Context, p *Pool, maxAttempts int, op func(ctx context.Context, e *Endpoint) (T, error)) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		e := p.Next()
		result, err := op(ctx, e)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errkind.Is(err, errkind.RateLimited) {
			return zero, err
		}

		p.markRateLimited(e)
		p.logger.Debug("endpoint rate limited, rotating",
			zap.String("endpoint", e.URL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts))
	}
	return zero, lastErr
}

// AccountInfo reads an account through the rotation with the pool's attempt ceiling.
func (p *Pool) AccountInfo(ctx context.Context, address string) (*solana.AccountInfo, error) {
	return WithRetry(ctx, p, p.maxAttempts, func(ctx context.Context, e *Endpoint) (*solana.AccountInfo, error) {
		return e.Client.GetAccountInfo(ctx, address)
	})
}

// Transaction fetches a transaction through the pool, rotating on rate limits.
// Returns nil, nil when the transaction is not yet visible.
func (p *Pool) Transaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return WithRetry(ctx, p, p.maxAttempts, func(ctx context.Context, e *Endpoint) (*solana.Transaction, error) {
		return e.Client.GetTransaction(ctx, signature)
	})
}
