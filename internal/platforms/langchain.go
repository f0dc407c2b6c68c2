package platforms

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"linkvault/internal/config"
)

// LangChainPlatform serves OpenAI-compatible endpoints through langchaingo.
type LangChainPlatform struct {
	model       llms.Model
	maxTokens   int
	temperature float64
}

func NewLangChainPlatform(cfg config.AIConfig) (*LangChainPlatform, error) {
	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &LangChainPlatform{
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (l *LangChainPlatform) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	opts := []llms.CallOption{llms.WithMaxTokens(l.maxTokens), llms.WithJSONMode()}
	if l.temperature > 0 {
		opts = append(opts, llms.WithTemperature(l.temperature))
	}

	resp, err := l.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}
