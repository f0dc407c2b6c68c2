package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"linkvault/internal/config"
)

type OllamaPlatform struct {
	client      *api.Client
	model       string
	temperature float64
}

func NewOllamaPlatform(cfg config.AIConfig) (*OllamaPlatform, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama: model cannot be empty")
	}

	var client *api.Client
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid base_url: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	}

	return &OllamaPlatform{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (o *OllamaPlatform) Client() *api.Client { return o.client }

func (o *OllamaPlatform) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := &api.GenerateRequest{
		Model:  o.model,
		System: system,
		Prompt: prompt,
		Stream: new(bool),
		Format: []byte(`"json"`),
	}
	if o.temperature > 0 {
		req.Options = map[string]any{"temperature": o.temperature}
	}

	var out strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	return out.String(), nil
}
