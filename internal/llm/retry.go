package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"triago/internal/models"
)

// RetryPolicy controls how transient completion failures are retried.
// Backoff grows by Factor per attempt from InitialDelay, capped at MaxDelay,
// with optional uniform jitter of up to InitialDelay on top.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Backoff returns how long to wait after the given 1-based attempt failed,
// or a negative duration when the attempt budget is spent.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt >= p.MaxAttempts {
		return -1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && p.InitialDelay > 0 {
		d += time.Duration(rand.Int63n(int64(p.InitialDelay)))
	}
	return d
}

// Retryable reports whether err is worth another attempt. Authentication,
// request, and configuration failures are final, as are an already-open
// breaker and a cancelled context. Everything else counts as transient.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, models.ErrAuthentication),
		errors.Is(err, models.ErrRequest),
		errors.Is(err, models.ErrConfiguration),
		errors.Is(err, models.ErrModelUnavailable),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

type retryingClient struct {
	next   Client
	policy RetryPolicy
}

// WithRetry wraps next so transient failures back off and retry per policy.
// When the budget runs out the returned error matches both
// models.ErrModelUnavailable and the last underlying error.
func WithRetry(next Client, policy RetryPolicy) Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryingClient{next: next, policy: policy}
}

func (c *retryingClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !Retryable(err) {
			return CompletionResponse{}, err
		}

		wait := c.policy.Backoff(attempt)
		if wait < 0 {
			return CompletionResponse{}, fmt.Errorf("%w after %d attempts: %w", models.ErrModelUnavailable, attempt, err)
		}
		log.Warnf("Completion attempt %d/%d against %s failed: %v. Retrying in %s.",
			attempt, c.policy.MaxAttempts, c.next.Name(), err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return CompletionResponse{}, fmt.Errorf("context cancelled while waiting to retry: %w", ctx.Err())
		}
	}
}

func (c *retryingClient) Name() string  { return c.next.Name() }
func (c *retryingClient) Model() string { return c.next.Model() }
