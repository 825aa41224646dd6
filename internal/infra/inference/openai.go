package inference

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"council-backend/internal/observability/logging"
	"council-backend/internal/observability/metrics"
	"council-backend/internal/resilience/circuitbreaker"
)

// OpenAI implements Provider using the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	config Config
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI client with the given API key.
func NewOpenAI(apiKey string, cfg Config, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	logger.Info("Initialized OpenAI client", slog.String("model", cfg.Model))

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger,
	}
}

// Name returns the circuit breaker name for the OpenAI API.
func (o *OpenAI) Name() string {
	return circuitbreaker.NameOpenAIAPI
}

// Complete sends prompt as a single user message and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               o.config.Model,
		MaxCompletionTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	duration := time.Since(start)
	metrics.RecordOperationDuration("inference_openai", duration)

	if err != nil {
		o.logger.ErrorContext(ctx, "OpenAI completion failed",
			slog.Duration("duration", duration),
			logging.ErrorAttr(err))
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError("openai", apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", statusError("openai", reqErr.HTTPStatusCode, err)
		}
		return "", statusError("openai", 0, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	o.logger.DebugContext(ctx, "OpenAI completion succeeded",
		slog.Duration("duration", duration),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}
