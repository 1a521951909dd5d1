package domain

import "context"

// Metadata is free-form information attached to a document at ingestion time.
type Metadata struct {
	Source string   `json:"source,omitempty" yaml:"source,omitempty"`
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Index is the position of the chunk within its source.
	Index int `json:"index" yaml:"index"`
}

// Document is an immutable text chunk held by a document pool.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// ScoredDocument is a retrieved document with its similarity to the query.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Embedder converts free text into a numeric vector representation.
// Vectors for identical input must be identical across calls.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fitter is implemented by embedders that must see the corpus before they can
// embed anything (TF-IDF). Fit never mutates the receiver; it returns a fitted
// embedder bound to the corpus.
type Fitter interface {
	Fit(ctx context.Context, corpus []string) (Embedder, error)
}

// Generator maps a prompt to generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Texts returns the text of every document, in order.
func Texts(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}
