package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"council-backend/internal/resilience/circuitbreaker"
	"council-backend/internal/resilience/retry"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = server.URL + "/v1"
	return NewOpenAI("test-key", cfg, quietLogger())
}

func TestOpenAI_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Ship it."},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	})

	answer, err := o.Complete(context.Background(), "Should we ship?")

	require.NoError(t, err)
	assert.Equal(t, "Ship it.", answer)
	assert.Equal(t, DefaultOpenAIConfig().Model, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Should we ship?", got.Messages[0].Content)
}

func TestOpenAI_Complete_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			})

			_, err := o.Complete(context.Background(), "hello")

			require.Error(t, err)
			assert.Contains(t, err.Error(), "openai api error")
			var httpErr *retry.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.retryable, retry.IsRetryable(err))
		})
	}
}

func TestOpenAI_Complete_EmptyChoices(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`))
	})

	_, err := o.Complete(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_Complete_EmptyPrompt(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty prompt")
	})

	_, err := o.Complete(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOpenAI_Name(t *testing.T) {
	o := NewOpenAI("k", DefaultOpenAIConfig(), quietLogger())
	assert.Equal(t, circuitbreaker.NameOpenAIAPI, o.Name())
}
