package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/config"
)

func TestNewOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	g, err := New(context.Background(), config.GeneratorConfig{Type: "ollama", OpenAI: &config.OpenAIConfig{
		BaseURL:        "http://localhost:11434/v1",
		APIKeyEnv:      "OPENAI_API_KEY",
		AllowAnonymous: true,
		Model:          "llama3.2",
	}})
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestNewErrors(t *testing.T) {
	t.Setenv("TEAPOT_MISSING_KEY", "")
	_, err := New(context.Background(), config.GeneratorConfig{Type: "openai", OpenAI: &config.OpenAIConfig{APIKeyEnv: "TEAPOT_MISSING_KEY"}})
	require.Error(t, err)
	_, err = New(context.Background(), config.GeneratorConfig{Type: "gemini"})
	require.Error(t, err)
	_, err = New(context.Background(), config.GeneratorConfig{Type: "markov"})
	require.ErrorContains(t, err, "unknown generator")
}
