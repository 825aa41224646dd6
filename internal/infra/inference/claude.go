package inference

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"council-backend/internal/observability/logging"
	"council-backend/internal/observability/metrics"
	"council-backend/internal/resilience/circuitbreaker"
)

// Claude implements Provider using Anthropic's Messages API.
// Retries are left to the caller; the SDK's own retry loop is disabled.
type Claude struct {
	client anthropic.Client
	config Config
	logger *slog.Logger
}

// NewClaude creates a Claude client with the given API key.
func NewClaude(apiKey string, cfg Config, logger *slog.Logger) *Claude {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	logger.Info("Initialized Claude client", slog.String("model", cfg.Model))

	return &Claude{
		client: anthropic.NewClient(opts...),
		config: cfg,
		logger: logger,
	}
}

// Name returns the circuit breaker name for the Claude API.
func (c *Claude) Name() string {
	return circuitbreaker.NameClaudeAPI
}

// Complete sends prompt as a single user message and joins the text blocks of the answer.
func (c *Claude) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)
	metrics.RecordOperationDuration("inference_claude", duration)

	if err != nil {
		c.logger.ErrorContext(ctx, "Claude completion failed",
			slog.Duration("duration", duration),
			logging.ErrorAttr(err))
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", statusError("claude", apiErr.StatusCode, err)
		}
		return "", statusError("claude", 0, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.DebugContext(ctx, "Claude completion succeeded",
		slog.Duration("duration", duration),
		slog.Int64("output_tokens", message.Usage.OutputTokens))
	return sb.String(), nil
}
