package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	guard  *guard
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, tier string) *OpenAIClient {
	return &OpenAIClient{
		guard:  newGuard("openai", tier),
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (oc *OpenAIClient) GenerateText(ctx context.Context, prompt string) (*GenerateResult, error) {
	return oc.guard.run(ctx, prompt, func(ctx context.Context) (*GenerateResult, error) {
		completion, err := oc.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:       openai.ChatModel(oc.model),
			Temperature: openai.Float(0.7),
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return nil, ErrEmptyResponse
		}

		text := strings.TrimSpace(completion.Choices[0].Message.Content)
		if text == "" {
			return nil, ErrEmptyResponse
		}
		return &GenerateResult{
			Text:       text,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      oc.model,
		}, nil
	})
}

func (oc *OpenAIClient) Close() error { return nil }
