// Package costtracker accumulates token usage and estimated spend over one
// run. Workers record usage concurrently; the summary feeds the final report
// and the run history.
package costtracker

import (
	"context"
	"sync"

	"triago/internal/config"
)

// Usage is one completion call's token consumption.
type Usage struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Summary totals a run's usage.
type Summary struct {
	Requests         int
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
}

// Tracker records usage events and reports the running total.
type Tracker interface {
	Record(ctx context.Context, usage Usage) error
	Summary() Summary
}

// Cost prices one usage event against the pricing table. Models absent from
// the table cost zero; prices are per one million tokens.
func Cost(pricing map[string]config.PricingInfo, usage Usage) float64 {
	info, ok := pricing[usage.Model]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*info.Input/1e6 +
		float64(usage.CompletionTokens)*info.Output/1e6
}

// MemoryTracker keeps the totals in memory for the lifetime of a run.
type MemoryTracker struct {
	pricing map[string]config.PricingInfo

	mu      sync.Mutex
	summary Summary
}

var _ Tracker = (*MemoryTracker)(nil)

func New(pricing map[string]config.PricingInfo) *MemoryTracker {
	return &MemoryTracker{pricing: pricing}
}

func (t *MemoryTracker) Record(_ context.Context, usage Usage) error {
	cost := Cost(t.pricing, usage)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Requests++
	t.summary.PromptTokens += int64(usage.PromptTokens)
	t.summary.CompletionTokens += int64(usage.CompletionTokens)
	t.summary.CostUSD += cost
	return nil
}

func (t *MemoryTracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Noop returns a tracker that discards everything, for dry runs.
func Noop() Tracker { return noopTracker{} }

type noopTracker struct{}

func (noopTracker) Record(context.Context, Usage) error { return nil }
func (noopTracker) Summary() Summary                    { return Summary{} }
