package llm

import (
	"context"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lepinkainen/bookmind/internal/errors"
)

// Breaker wraps a Generator with a circuit breaker so a failing backend is
// skipped quickly instead of timing out on every call.
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[string]
	name string
}

var (
	_ Generator       = (*Breaker)(nil)
	_ SystemCompleter = (*Breaker)(nil)
)

// BreakerSettings controls when the breaker opens and how long it stays open.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings opens after 3 consecutive failures for 1 minute.
var DefaultBreakerSettings = BreakerSettings{
	ConsecutiveFailures: 3,
	OpenTimeout:         time.Minute,
}

// NewBreaker wraps next with a circuit breaker identified by name.
func NewBreaker(name string, next Generator, settings BreakerSettings) *Breaker {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings.ConsecutiveFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerSettings.OpenTimeout
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("Generator circuit breaker state changed", "generator", name, "from", from.String(), "to", to.String())
		},
	})

	return &Breaker{next: next, cb: cb, name: name}
}

// Complete runs the wrapped generator unless the circuit is open.
func (b *Breaker) Complete(ctx context.Context, prompt string) (string, error) {
	return b.execute(func() (string, error) {
		return b.next.Complete(ctx, prompt)
	})
}

// CompleteWithSystem runs the wrapped generator unless the circuit is open.
func (b *Breaker) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return b.execute(func() (string, error) {
		return CompleteWithSystem(ctx, b.next, system, prompt)
	})
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) execute(fn func() (string, error)) (string, error) {
	out, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "", errors.NewProviderUnavailableError(b.name, err)
	}
	return out, err
}
