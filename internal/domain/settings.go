package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the read-only configuration shared by every operation of one
// engine instance.
type Settings struct {
	UseRetrieval        bool    `yaml:"use_retrieval" json:"use_retrieval"`
	TopK                int     `yaml:"top_k" json:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	MaxContextTokens    int     `yaml:"max_context_tokens" json:"max_context_tokens"`
	UseChunking         bool    `yaml:"use_chunking" json:"use_chunking"`
	UseTools            bool    `yaml:"use_tools" json:"use_tools"`
	MaxToolCalls        int     `yaml:"max_tool_calls" json:"max_tool_calls"`
	LogLevel            string  `yaml:"log_level" json:"log_level"`
	Verbose             bool    `yaml:"verbose" json:"verbose"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		UseRetrieval:        true,
		TopK:                3,
		SimilarityThreshold: 0.5,
		MaxContextTokens:    512,
		UseChunking:         true,
		UseTools:            true,
		MaxToolCalls:        2,
		LogLevel:            "info",
		Verbose:             true,
	}
}

// Validate reports the first out-of-range value.
func (s Settings) Validate() error {
	switch {
	case s.TopK < 1:
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidSettings, s.TopK)
	case s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity_threshold must be within [0,1], got %g", ErrInvalidSettings, s.SimilarityThreshold)
	case s.MaxContextTokens < 1:
		return fmt.Errorf("%w: max_context_tokens must be >= 1, got %d", ErrInvalidSettings, s.MaxContextTokens)
	case s.MaxToolCalls < 0:
		return fmt.Errorf("%w: max_tool_calls must be >= 0, got %d", ErrInvalidSettings, s.MaxToolCalls)
	}
	return nil
}
