package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

type GeminiClient struct {
	guard  *guard
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model, tier string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		guard:  newGuard("gemini", tier),
		client: client,
		model:  model,
	}, nil
}

func (gc *GeminiClient) GenerateText(ctx context.Context, prompt string) (*GenerateResult, error) {
	return gc.guard.run(ctx, prompt, func(ctx context.Context) (*GenerateResult, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(8192)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, fmt.Errorf("gemini generate: %w", err)
		}

		text := responseText(resp)
		if text == "" {
			return nil, ErrEmptyResponse
		}

		tokens := 0
		if resp.UsageMetadata != nil {
			tokens = int(resp.UsageMetadata.TotalTokenCount)
		}
		return &GenerateResult{Text: text, TokensUsed: tokens, Model: gc.model}, nil
	})
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// Only the first candidate with content is used.
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
