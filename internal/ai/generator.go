//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_text_generator.go -package=mocks lms-ai-backend/internal/ai TextGenerator

package ai

import (
	"context"
	"errors"
	"fmt"

	"lms-ai-backend/internal/config"
)

var (
	// ErrGeneratorUnavailable means the provider is failing or throttled and the
	// request should be retried later.
	ErrGeneratorUnavailable = errors.New("text generation temporarily unavailable")
	ErrEmptyResponse        = errors.New("text generation returned no content")
	ErrQuotaExceeded        = errors.New("daily AI quota exceeded")
)

// GenerateResult is one completed generation.
type GenerateResult struct {
	Text       string
	TokensUsed int
	Model      string
}

// TextGenerator is the only capability the rest of the application needs from an
// LLM provider.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (*GenerateResult, error)
	Close() error
}

// NewTextGenerator builds the provider selected by AI_PROVIDER. The configuration
// must already be validated.
func NewTextGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITier)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AITier), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// EstimateTokens approximates prompt size at about four characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
