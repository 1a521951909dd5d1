package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/config"
	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/embedcache"
	"github.com/zakerytclarke/teapot/internal/embedding/gemini"
	"github.com/zakerytclarke/teapot/internal/embedding/openai"
	"github.com/zakerytclarke/teapot/internal/embedding/tfidf"
)

// New builds the configured embedder.
func New(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai", "ollama":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%s embedder config missing", cfg.Type)
		}
		return openai.NewClient(openai.Config{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKeyEnv:      cfg.OpenAI.APIKeyEnv,
			AllowAnonymous: cfg.OpenAI.AllowAnonymous,
			Model:          cfg.OpenAI.Model,
			Timeout:        time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:     cfg.OpenAI.MaxRetries,
		})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		return gemini.NewEmbedder(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
			TaskType:  cfg.Gemini.TaskType,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// WithCache layers the configured caches over e, memory in front of disk.
// The returned func releases the disk cache.
func WithCache(ctx context.Context, e domain.Embedder, cfg config.CacheConfig) (domain.Embedder, func() error, error) {
	closer := func() error { return nil }
	if _, ok := e.(domain.Fitter); ok {
		return e, closer, nil
	}
	if cfg.SQLitePath != "" {
		store, err := embedcache.OpenStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open embedding cache: %w", err)
		}
		if cfg.MaxAgeHours > 0 {
			n, err := store.Prune(ctx, time.Duration(cfg.MaxAgeHours)*time.Hour)
			if err != nil {
				_ = store.Close()
				return nil, nil, err
			}
			logutil.GetLogger(ctx).Debug("embedding cache pruned", zap.Int64("rows", n))
		}
		e = embedcache.WrapStore(e, store)
		closer = store.Close
	}
	e = embedcache.WrapLRU(e, cfg.LRUSize, time.Duration(cfg.TTLSecs)*time.Second)
	return e, closer, nil
}
