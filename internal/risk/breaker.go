package risk

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/errkind"
)

// newBreaker trips after MaxFailures consecutive outages of one source so a
// dead API fails fast instead of costing its timeout on every candidate.
// Only transport-level failures count; a fatal reply or cancellation does not.
func newBreaker(name string, cfg config.BreakerCfg, logger *zap.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return errkind.Of(err) == errkind.Fatal
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("risk source breaker state change",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// call runs fn through cb and restores the concrete result type.
func call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
