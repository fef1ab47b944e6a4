package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/gmsas95/aria/internal/errors"
)

// guard wraps model calls with a request-per-minute limiter and a circuit
// breaker. A tripped breaker fails fast with ErrModelUnavailable instead
// of stacking blocked turns behind a dead provider.
type guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*ChatResponse]
}

func newGuard(requestsPerMinute int) *guard {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerMinute)/60, requestsPerMinute)
	}

	breaker := gobreaker.NewCircuitBreaker[*ChatResponse](gobreaker.Settings{
		Name:        "chat-completions",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &guard{
		limiter: limiter,
		breaker: breaker,
	}
}

func (g *guard) execute(ctx context.Context, call func() (*ChatResponse, error)) (*ChatResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrModelUnavailable, "rate limiter interrupted")
	}

	resp, err := g.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.Wrap(err, apperrors.ErrModelUnavailable, "circuit breaker open")
	}
	return resp, err
}
