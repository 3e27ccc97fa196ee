package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// throttledClient spaces requests out with a client-side rate limiter shared
// across workers.
type throttledClient struct {
	next    Client
	limiter *rate.Limiter
}

// WithThrottle wraps next so at most requestsPerSecond calls reach it.
func WithThrottle(next Client, requestsPerSecond float64) Client {
	return &throttledClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *throttledClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return CompletionResponse{}, fmt.Errorf("context cancelled while waiting for request slot: %w", err)
	}
	return c.next.Complete(ctx, req)
}

func (c *throttledClient) Name() string  { return c.next.Name() }
func (c *throttledClient) Model() string { return c.next.Model() }
