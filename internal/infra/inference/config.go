package inference

import (
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"

	"council-backend/internal/pkg/config"
)

// Config holds the request parameters of a provider.
type Config struct {
	// Model is the upstream model identifier.
	Model string

	// MaxTokens bounds the length of the answer.
	// Range: 1-32000
	MaxTokens int

	// BaseURL overrides the upstream endpoint. Empty uses the SDK default.
	BaseURL string
}

const defaultMaxTokens = 1024

// DefaultClaudeConfig returns the Claude defaults.
func DefaultClaudeConfig() Config {
	return Config{
		Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens: defaultMaxTokens,
	}
}

// DefaultOpenAIConfig returns the OpenAI defaults.
func DefaultOpenAIConfig() Config {
	return Config{
		Model:     openai.GPT4oMini,
		MaxTokens: defaultMaxTokens,
	}
}

// LoadClaudeConfig reads CLAUDE_MODEL, CLAUDE_MAX_TOKENS and CLAUDE_BASE_URL.
// Invalid values fall back to the defaults with a warning.
func LoadClaudeConfig(logger *slog.Logger) Config {
	return loadConfig(logger, "CLAUDE", DefaultClaudeConfig())
}

// LoadOpenAIConfig reads OPENAI_MODEL, OPENAI_MAX_TOKENS and OPENAI_BASE_URL.
// Invalid values fall back to the defaults with a warning.
func LoadOpenAIConfig(logger *slog.Logger) Config {
	return loadConfig(logger, "OPENAI", DefaultOpenAIConfig())
}

func loadConfig(logger *slog.Logger, prefix string, cfg Config) Config {
	cfg.Model = config.LoadEnvString(prefix+"_MODEL", cfg.Model)
	cfg.BaseURL = config.LoadEnvString(prefix+"_BASE_URL", cfg.BaseURL)

	result := config.LoadEnvInt(prefix+"_MAX_TOKENS", cfg.MaxTokens, func(v int) error {
		return config.ValidateIntRange(v, 1, 32000)
	})
	cfg.MaxTokens = result.Value.(int)
	for _, warning := range result.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", prefix+"_MAX_TOKENS"),
			slog.String("warning", warning))
	}
	return cfg
}
