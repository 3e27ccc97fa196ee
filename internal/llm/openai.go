package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"triago/internal/models"
)

// OpenAIClient talks to the OpenAI chat completions API, or to an Azure
// OpenAI deployment when built with NewAzure.
type OpenAIClient struct {
	client *openai.Client
	name   string
	model  string
	params GenParams
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAI creates a client against api.openai.com, or baseURL when set
// (for OpenAI-compatible endpoints).
func NewOpenAI(apiKey, baseURL, model string, params GenParams) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		name:   "openai",
		model:  model,
		params: params,
	}
}

// NewAzure creates a client against an Azure OpenAI resource. All model
// names map onto the single configured deployment.
func NewAzure(apiKey, endpoint, deployment, apiVersion, model string, params GenParams) *OpenAIClient {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	if deployment != "" {
		cfg.AzureModelMapperFunc = func(string) string { return deployment }
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		name:   "azure",
		model:  model,
		params: params,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: "user", Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.params.MaxTokens,
		Temperature: c.params.Temperature,
	})
	if err != nil {
		return CompletionResponse{}, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("no completion choices returned")
	}
	return CompletionResponse{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAIClient) Name() string  { return c.name }
func (c *OpenAIClient) Model() string { return c.model }

// wrapOpenAIError attaches the sentinel matching the HTTP status:
// authentication and malformed-request failures are final, everything else
// stays unwrapped and is treated as transient by the retry layer.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if s := classifyStatus(apiErr.HTTPStatusCode); s != nil {
			return fmt.Errorf("%w: %v", s, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if s := classifyStatus(reqErr.HTTPStatusCode); s != nil {
			return fmt.Errorf("%w: %v", s, err)
		}
	}
	return fmt.Errorf("openai completion: %w", err)
}

func classifyStatus(status int) error {
	switch status {
	case 401, 403:
		return models.ErrAuthentication
	case 400, 404, 422:
		return models.ErrRequest
	}
	return nil
}
