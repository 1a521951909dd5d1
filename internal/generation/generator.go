package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/zakerytclarke/teapot/internal/config"
	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/generation/gemini"
	"github.com/zakerytclarke/teapot/internal/generation/openai"
)

// New builds the configured generator.
func New(ctx context.Context, cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "openai", "ollama":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%s generator config missing", cfg.Type)
		}
		return openai.NewClient(openai.Config{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKeyEnv:      cfg.OpenAI.APIKeyEnv,
			AllowAnonymous: cfg.OpenAI.AllowAnonymous,
			Model:          cfg.OpenAI.Model,
			Temperature:    cfg.OpenAI.Temperature,
			MaxTokens:      cfg.OpenAI.MaxTokens,
			Timeout:        time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:     cfg.OpenAI.MaxRetries,
		})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini generator config missing")
		}
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
		})
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}
