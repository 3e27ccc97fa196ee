package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"triago/internal/models"
)

// breakerClient stops calling the provider after maxFailures consecutive
// failures and fails fast until resetAfter has passed, then lets calls
// through again.
type breakerClient struct {
	next        Client
	maxFailures int
	resetAfter  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
}

// WithBreaker wraps next with a circuit breaker shared across workers.
func WithBreaker(next Client, maxFailures int, resetAfter time.Duration) Client {
	return &breakerClient{next: next, maxFailures: maxFailures, resetAfter: resetAfter}
}

func (c *breakerClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := c.allow(); err != nil {
		return CompletionResponse{}, err
	}
	resp, err := c.next.Complete(ctx, req)
	c.record(err)
	return resp, err
}

func (c *breakerClient) allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.maxFailures {
		return nil
	}
	if time.Since(c.openedAt) >= c.resetAfter {
		c.failures = 0
		return nil
	}
	return fmt.Errorf("%w: circuit breaker open after %d consecutive failures", models.ErrModelUnavailable, c.maxFailures)
}

func (c *breakerClient) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.failures = 0
		return
	}
	c.failures++
	if c.failures == c.maxFailures {
		c.openedAt = time.Now()
		log.Warnf("Circuit breaker opened after %d consecutive failures. Pausing calls to %s for %s.",
			c.failures, c.next.Name(), c.resetAfter)
	}
}

func (c *breakerClient) Name() string  { return c.next.Name() }
func (c *breakerClient) Model() string { return c.next.Model() }
