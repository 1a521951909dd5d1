package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

var errNoEmbedding = errors.New("no embedding values returned")

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	// TaskType is forwarded to the embedding API, e.g. "RETRIEVAL_DOCUMENT".
	TaskType string
}

// Embedder embeds text with a Gemini embedding model.
type Embedder struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewEmbedder creates a Gemini embedder.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	return &Embedder{client: client, model: model, taskType: cfg.TaskType}, nil
}

func (e *Embedder) Name() string { return "gemini:" + e.model }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var config *genai.EmbedContentConfig
	if e.taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: e.taskType}
	}
	resp, err := e.client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errNoEmbedding
	}
	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
