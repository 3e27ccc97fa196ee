package config

import (
	"fmt"

	"triago/internal/analysis"
	"triago/internal/models"
)

/*
Validation covers everything a run depends on before the first network call:
provider selection and credentials, batch geometry, the retry budget, model
parameters, and the preselected analysis types.
*/

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: openai.api_key is required (or set OPENAI_API_KEY)", models.ErrConfiguration)
		}
	case ProviderAzure:
		if c.Azure.APIKey == "" {
			return fmt.Errorf("%w: azure.api_key is required (or set AZURE_OPENAI_API_KEY)", models.ErrConfiguration)
		}
		if c.Azure.Endpoint == "" {
			return fmt.Errorf("%w: azure.endpoint is required (or set AZURE_OPENAI_ENDPOINT)", models.ErrConfiguration)
		}
		if c.Azure.Deployment == "" {
			return fmt.Errorf("%w: azure.deployment is required (or set AZURE_OPENAI_DEPLOYMENT)", models.ErrConfiguration)
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: gemini.api_key is required (or set GEMINI_API_KEY)", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q (want openai, azure, or gemini)", models.ErrConfiguration, c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model is required", models.ErrConfiguration)
	}

	if c.Batch.Size <= 0 {
		return fmt.Errorf("%w: batch.size must be a positive integer", models.ErrConfiguration)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("%w: batch.concurrency must be a positive integer", models.ErrConfiguration)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", models.ErrConfiguration)
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("%w: retry.backoff_factor must be at least 1", models.ErrConfiguration)
	}

	if c.Params.MaxTokens <= 0 {
		return fmt.Errorf("%w: params.max_tokens must be positive", models.ErrConfiguration)
	}
	if c.Params.Temperature < 0 || c.Params.Temperature > 2 {
		return fmt.Errorf("%w: params.temperature must be within [0, 2]", models.ErrConfiguration)
	}

	if c.Throttle.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: throttle.requests_per_second must not be negative", models.ErrConfiguration)
	}
	if c.Preprocess.MaxFieldLength < 0 {
		return fmt.Errorf("%w: preprocess.max_field_length must not be negative", models.ErrConfiguration)
	}

	// Preselected types are optional, but when present they must exist.
	if _, err := analysis.ParseList(c.Analysis.Types); err != nil {
		return err
	}

	return nil
}
