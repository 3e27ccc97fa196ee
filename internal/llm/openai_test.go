package llm

import (
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"triago/internal/models"
)

func TestWrapOpenAIErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorized", 401, models.ErrAuthentication},
		{"forbidden", 403, models.ErrAuthentication},
		{"bad request", 400, models.ErrRequest},
		{"not found", 404, models.ErrRequest},
		{"unprocessable", 422, models.ErrRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapOpenAIError(&openai.APIError{HTTPStatusCode: tt.status, Message: "nope"})
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestWrapOpenAIErrorTransientStaysRetryable(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503} {
		err := wrapOpenAIError(&openai.APIError{HTTPStatusCode: status, Message: "later"})
		assert.True(t, Retryable(err), "status %d should retry", status)
		assert.NotErrorIs(t, err, models.ErrAuthentication)
		assert.NotErrorIs(t, err, models.ErrRequest)
	}
}

func TestWrapOpenAIErrorPlainError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := wrapOpenAIError(cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Retryable(err))
}

func TestWrapGeminiErrorClassification(t *testing.T) {
	assert.ErrorIs(t, wrapGeminiError(&googleapi.Error{Code: 403}), models.ErrAuthentication)
	assert.ErrorIs(t, wrapGeminiError(&googleapi.Error{Code: 400}), models.ErrRequest)
	assert.True(t, Retryable(wrapGeminiError(&googleapi.Error{Code: 429})))
}
