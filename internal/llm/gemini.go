package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	params GenParams
}

var _ Client = (*GeminiClient)(nil)

func NewGemini(ctx context.Context, apiKey, model string, params GenParams) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, params: params}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	gm := c.client.GenerativeModel(c.model)
	gm.SetTemperature(c.params.Temperature)
	if c.params.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(c.params.MaxTokens))
	}
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return CompletionResponse{}, wrapGeminiError(err)
	}

	var out CompletionResponse
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out.Text = b.String()
	return out, nil
}

func (c *GeminiClient) Name() string  { return "gemini" }
func (c *GeminiClient) Model() string { return c.model }

// Close releases the underlying API connection.
func (c *GeminiClient) Close() error { return c.client.Close() }

func wrapGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if s := classifyStatus(apiErr.Code); s != nil {
			return fmt.Errorf("%w: %v", s, err)
		}
	}
	return fmt.Errorf("gemini completion: %w", err)
}
