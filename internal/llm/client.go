// Package llm sends prompts to hosted text-generation APIs. A provider
// client (OpenAI, Azure OpenAI, or Gemini) sits at the bottom; throttle,
// circuit breaker, and retry wrappers stack on top of it, so callers only
// ever see the Client interface.
package llm

import (
	"context"
	"fmt"

	"triago/internal/config"
	"triago/internal/models"
)

// CompletionRequest carries one prompt exchange.
type CompletionRequest struct {
	System string
	Prompt string
}

// CompletionResponse carries the raw reply text and token usage.
type CompletionResponse struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// GenParams are the generation parameters shared by all providers.
type GenParams struct {
	MaxTokens   int
	Temperature float32
}

// Client generates one completion per call.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
	Model() string
}

// New builds the configured provider and wraps it with the throttle,
// circuit breaker, and retry layers, innermost first. Every retry attempt
// passes through the throttle and is counted by the breaker.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	params := GenParams{MaxTokens: cfg.Params.MaxTokens, Temperature: cfg.Params.Temperature}

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model, params)
	case config.ProviderAzure:
		client = NewAzure(cfg.Azure.APIKey, cfg.Azure.Endpoint, cfg.Azure.Deployment, cfg.Azure.APIVersion, cfg.Model, params)
	case config.ProviderGemini:
		client, err = NewGemini(ctx, cfg.Gemini.APIKey, cfg.Model, params)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", models.ErrConfiguration, cfg.Provider)
	}

	if cfg.Throttle.RequestsPerSecond > 0 {
		client = WithThrottle(client, cfg.Throttle.RequestsPerSecond)
	}
	if cfg.Breaker.MaxFailures > 0 {
		client = WithBreaker(client, cfg.Breaker.MaxFailures, cfg.Breaker.ResetTimeout)
	}
	return WithRetry(client, RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Factor:       cfg.Retry.BackoffFactor,
		MaxDelay:     cfg.Retry.MaxDelay,
		Jitter:       true,
	}), nil
}
