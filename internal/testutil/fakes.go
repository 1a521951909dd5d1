// Package testutil holds deterministic model fakes shared by package tests.
package testutil

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	"github.com/zakerytclarke/teapot/internal/domain"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

func words(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// KeywordEmbedder counts keyword hits per concept dimension. Words missing
// from Concepts are ignored.
type KeywordEmbedder struct {
	Concepts map[string]int
	Size     int
}

func (k KeywordEmbedder) Name() string { return "keyword" }

func (k KeywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, k.Size)
	for _, w := range words(text) {
		if dim, ok := k.Concepts[w]; ok {
			vec[dim]++
		}
	}
	return vec, nil
}

// LandmarkEmbedder understands enough about landmarks to tell the Eiffel
// Tower apart from the Great Wall.
func LandmarkEmbedder() KeywordEmbedder {
	concepts := map[string]int{}
	groups := [][]string{
		{"landmark", "tower", "wall", "fortification", "monument"},
		{"built", "constructed", "erected"},
		{"1889", "1800s", "nineteenth"},
		{"paris", "france", "french"},
		{"china", "historic", "miles", "stretches", "chinese"},
	}
	for dim, g := range groups {
		for _, w := range g {
			concepts[w] = dim
		}
	}
	return KeywordEmbedder{Concepts: concepts, Size: len(groups)}
}

// HashEmbedder buckets words by FNV hash. Deterministic, vocabulary free.
type HashEmbedder struct {
	Size int
}

func (h HashEmbedder) Name() string { return "hash" }

func (h HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.Size)
	for _, w := range words(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[int(f.Sum32()%uint32(h.Size))]++
	}
	return vec, nil
}

// Generator answers prompts with Respond and records every prompt it saw.
type Generator struct {
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.Respond(prompt)
}

// Prompts returns a copy of the prompts received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Docs wraps texts into documents whose IDs are their positions.
func Docs(texts ...string) []domain.Document {
	out := make([]domain.Document, len(texts))
	for i, t := range texts {
		out[i] = domain.Document{ID: string(rune('a' + i)), Text: t}
	}
	return out
}

// Landmark documents used by end-to-end retrieval tests.
const (
	EiffelTower = "The Eiffel Tower is located in Paris, France. It was built in 1889 and stands 330 meters tall."
	GreatWall   = "The Great Wall of China is a historic fortification that stretches over 13,000 miles."
)
