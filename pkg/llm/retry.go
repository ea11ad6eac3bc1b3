package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// Per spec §4.5: rate-limited invocations retry up to three times with
// exponential backoff (1s, 2s, 4s) jittered ±25%; timeouts retry once with
// no backoff; every other provider error is terminal.
const (
	maxRateLimitRetries = 3
	rateLimitBaseDelay  = time.Second
	jitterFraction      = 0.25
)

// RetryingProvider decorates a Provider with the gateway's retry policy and a
// per-provider circuit breaker, so callers never see a transient rate limit
// or timeout unless the policy has been exhausted.
type RetryingProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// NewRetryingProvider wraps inner. name identifies the breaker in logs and
// metrics (typically the Variant string).
func NewRetryingProvider(name string, inner Provider) *RetryingProvider {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			slog.Warn("llm provider circuit breaker state change",
				"provider", breakerName, "from", from.String(), "to", to.String())
		},
	}
	return &RetryingProvider{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Invoke implements Provider.
func (r *RetryingProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	attempt := 0
	for {
		result, err := r.breaker.Execute(func() (any, error) {
			return r.inner.Invoke(ctx, req)
		})
		if err == nil {
			return result.(Response), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, apperr.Wrap(apperr.CodeProviderUnavailable, "llm: circuit breaker open", err)
		}

		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			return Response{}, err
		}

		switch appErr.Code {
		case apperr.CodeProviderRateLimited:
			if attempt >= maxRateLimitRetries {
				return Response{}, err
			}
			if waitErr := sleepWithJitter(ctx, rateLimitBaseDelay<<attempt); waitErr != nil {
				return Response{}, waitErr
			}
			attempt++
			continue
		case apperr.CodeProviderTimeout:
			if attempt >= 1 {
				return Response{}, err
			}
			attempt++
			continue
		default:
			return Response{}, err
		}
	}
}

// sleepWithJitter waits base ±25%, or returns ctx.Err() if ctx is cancelled
// first.
func sleepWithJitter(ctx context.Context, base time.Duration) error {
	jitter := time.Duration(float64(base) * jitterFraction * (rand.Float64()*2 - 1))
	wait := base + jitter
	if wait < 0 {
		wait = 0
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
