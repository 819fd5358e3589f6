// Package errkind classifies transport failures so retry logic can branch on
// a typed kind instead of matching error strings.
package errkind

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the retry class of a failure.
type Kind int

const (
	// Fatal errors are surfaced to the caller without retry.
	Fatal Kind = iota
	// RateLimited errors are retried against another endpoint.
	RateLimited
	// Unavailable errors mean the upstream is temporarily unreachable.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case Unavailable:
		return "unavailable"
	default:
		return "fatal"
	}
}

// Error wraps a cause with its kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind.
func New(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Of returns the kind of err. Unclassified errors are Fatal, except deadline
// expiry which is Unavailable.
func Of(err error) Kind {
	if err == nil {
		return Fatal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable
	}
	return Fatal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && Of(err) == kind
}

// FromStatus classifies an HTTP status code. It returns nil for 2xx.
func FromStatus(op string, status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return New(RateLimited, op, fmt.Errorf("status %d", status))
	case status >= 500:
		return New(Unavailable, op, fmt.Errorf("status %d: %s", status, body))
	default:
		return New(Fatal, op, fmt.Errorf("status %d: %s", status, body))
	}
}
