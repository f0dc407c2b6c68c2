package platforms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkvault/internal/config"
)

// LLM completes a single prompt under a system instruction.
type LLM interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NewLLM builds the completion backend named by cfg.Provider.
func NewLLM(cfg config.AIConfig, logger *slog.Logger) (LLM, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		llm LLM
		err error
	)
	switch cfg.Provider {
	case "ollama", "":
		llm, err = NewOllamaPlatform(cfg)
	case "anthropic":
		llm, err = NewAnthropicPlatform(cfg)
	case "openai":
		llm, err = NewLangChainPlatform(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("AI provider configured", "provider", cfg.Provider, "model", cfg.Model)
	return &timedLLM{llm: llm, timeout: config.ParseDuration(cfg.Timeout, 2*time.Minute)}, nil
}

// timedLLM bounds each completion call.
type timedLLM struct {
	llm     LLM
	timeout time.Duration
}

func (t *timedLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.llm.Complete(ctx, system, prompt)
}
