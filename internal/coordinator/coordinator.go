// Package coordinator runs ordered provider chains with retry, circuit
// breaking, and fallback.
//
// A fact is fetched from the first source in its chain that can answer.
// Retryable failures (rate limits, timeouts, upstream 5xx) are retried on
// the same source with linear backoff; terminal failures advance to the
// next source. A NotFound answer is authoritative: it ends the chain as
// "no data" without falling through, because a later provider inventing
// data the primary says does not exist would poison the analysis.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/nftsentry/internal/circuitbreaker"
	"github.com/mbd888/nftsentry/internal/logging"
	"github.com/mbd888/nftsentry/internal/metrics"
	"github.com/mbd888/nftsentry/internal/provider"
	"github.com/mbd888/nftsentry/internal/retry"
	"github.com/mbd888/nftsentry/internal/traces"
)

// Status is the terminal state of one fact fetch.
type Status int

const (
	// StatusNoData means no source served a value. This is a normal
	// outcome, not an error; the evaluator scores absence on its own.
	// It is the zero value so an unfetched Outcome reads as absent.
	StatusNoData Status = iota
	// StatusOK means a source served a value.
	StatusOK
)

// Source is one provider in a fact chain.
type Source[T any] struct {
	Provider string
	Fetch    func(ctx context.Context, subject string) (T, error)
}

// Outcome is the result of running a chain.
type Outcome[T any] struct {
	Value    T
	Provider string // source that answered; empty when StatusNoData
	Status   Status
	Err      error // last failure when the chain was exhausted
}

// Coordinator holds the shared retry budget and circuit breaker applied
// to every chain.
type Coordinator struct {
	breaker   *circuitbreaker.Breaker
	attempts  int
	baseDelay time.Duration
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithBreaker sets the circuit breaker consulted before each source.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Coordinator) { c.breaker = b }
}

// New creates a coordinator retrying each source up to attempts times with
// linear backoff starting at baseDelay.
func New(attempts int, baseDelay time.Duration, opts ...Option) *Coordinator {
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	c := &Coordinator{attempts: attempts, baseDelay: baseDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch runs the chain for one fact about one subject.
func Fetch[T any](ctx context.Context, c *Coordinator, fact, subject string, sources []Source[T]) Outcome[T] {
	log := logging.L(ctx)

	var lastErr error
	for i, src := range sources {
		if c.breaker != nil && !c.breaker.Allow(src.Provider) {
			log.Debug("provider circuit open, skipping",
				"provider", src.Provider, "fact", fact)
			continue
		}

		value, err := attempt(ctx, c, src, subject)
		switch {
		case err == nil:
			metrics.ProviderRequestsTotal.WithLabelValues(src.Provider, "ok").Inc()
			if c.breaker != nil {
				c.breaker.RecordSuccess(src.Provider)
			}
			if i > 0 {
				metrics.ProviderFallbacksTotal.WithLabelValues(fact).Inc()
			}
			return Outcome[T]{Value: value, Provider: src.Provider, Status: StatusOK}

		case errors.Is(err, provider.ErrNotFound):
			// Authoritative absence. The chain stops here.
			metrics.ProviderRequestsTotal.WithLabelValues(src.Provider, "no_data").Inc()
			if c.breaker != nil {
				c.breaker.RecordSuccess(src.Provider)
			}
			return Outcome[T]{Provider: src.Provider, Status: StatusNoData}

		case errors.Is(err, provider.ErrUnavailable):
			// Not configured. Skip without penalizing provider health.
			metrics.ProviderRequestsTotal.WithLabelValues(src.Provider, "unavailable").Inc()

		default:
			metrics.ProviderRequestsTotal.WithLabelValues(src.Provider, outcomeLabel(err)).Inc()
			if c.breaker != nil {
				c.breaker.RecordFailure(src.Provider)
			}
			log.Warn("provider fetch failed",
				"provider", src.Provider, "fact", fact, "error", err)
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return Outcome[T]{Status: StatusNoData, Err: lastErr}
}

// attempt runs one source with the retry budget. Retryable failures are
// re-attempted with linear backoff; everything else aborts the source.
func attempt[T any](ctx context.Context, c *Coordinator, src Source[T], subject string) (T, error) {
	ctx, span := traces.StartSpan(ctx, "provider.fetch",
		traces.Provider(src.Provider), traces.Subject(subject))
	defer span.End()

	var value T
	calls := 0
	err := retry.Do(ctx, c.attempts, c.baseDelay, func() error {
		calls++
		v, ferr := src.Fetch(ctx, subject)
		if ferr == nil {
			value = v
			return nil
		}
		if !retryable(ferr) {
			return retry.Permanent(ferr)
		}
		return ferr
	})
	if calls > 1 {
		metrics.ProviderRetriesTotal.WithLabelValues(src.Provider).Add(float64(calls - 1))
	}
	return value, err
}

// outcomeLabel maps a failure to its metrics label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, provider.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, provider.ErrTimeout):
		return "timeout"
	case errors.Is(err, provider.ErrMalformed):
		return "malformed"
	case errors.Is(err, provider.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// retryable reports whether a failure is worth another attempt on the
// same source.
func retryable(err error) bool {
	switch {
	case errors.Is(err, provider.ErrRateLimited), errors.Is(err, provider.ErrTimeout):
		return true
	case errors.Is(err, provider.ErrUnauthorized),
		errors.Is(err, provider.ErrNotFound),
		errors.Is(err, provider.ErrMalformed),
		errors.Is(err, provider.ErrUnavailable):
		return false
	default:
		// Upstream 5xx and transport hiccups are transient.
		return true
	}
}
