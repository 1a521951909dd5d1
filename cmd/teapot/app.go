package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/config"
	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/embedding"
	"github.com/zakerytclarke/teapot/internal/generation"
	"github.com/zakerytclarke/teapot/internal/ingest"
	"github.com/zakerytclarke/teapot/internal/refusal"
	"github.com/zakerytclarke/teapot/internal/service"
	"github.com/zakerytclarke/teapot/internal/summarizer"
	"github.com/zakerytclarke/teapot/internal/tools"
)

// app holds the assembled engine and the inputs it was built from.
type app struct {
	cfg     *config.AppConfig
	engine  *service.Engine
	paths   []string
	docs    []domain.Document
	closers []func() error
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, used, err := config.LoadDefault()
		if err != nil {
			return nil, err
		}
		logutil.GetLogger(context.Background()).Debug("config resolved", zap.String("config", used))
		return cfg, nil
	}
	return config.Load(path)
}

func initLogger(cfg config.LogConfig) {
	logger.Init(cfg.File, cfg.Level, cfg.FileCount, cfg.FileSize, cfg.KeepDays, cfg.Console)
}

func newApp(ctx context.Context, cfg *config.AppConfig, paths []string) (*app, error) {
	a := &app{cfg: cfg, paths: paths}
	if (cfg.Embedder.Type == "tfidf" || cfg.Embedder.Type == "") && cfg.Engine.UseRetrieval {
		logutil.GetLogger(ctx).Info("tfidf embedder matches shared terms only, use ollama, openai or gemini for semantic retrieval",
			zap.Float64("similarity_threshold", cfg.Engine.SimilarityThreshold))
	}
	emb, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}
	cached, closeCache, err := embedding.WithCache(ctx, emb, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	gen, err := generation.New(ctx, cfg.Generator)
	if err != nil {
		a.Close()
		return nil, err
	}
	detector, err := newDetector(cached, cfg.Refusal)
	if err != nil {
		a.Close()
		return nil, err
	}
	registry, err := tools.NewRegistry(enabledTools(cfg.Tools)...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine, err = service.New(service.Options{
		Settings:  cfg.Engine,
		Embedder:  cached,
		Generator: gen,
		Refusal:   detector,
		Tools:     registry,
		System:    cfg.SystemPrompt,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.reload(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newDetector(emb domain.Embedder, cfg config.RefusalConfig) (*refusal.Detector, error) {
	if cfg.ClassifierPath == "" {
		return refusal.NewDetector(nil, nil, cfg.Phrases...), nil
	}
	if _, ok := emb.(domain.Fitter); ok {
		return nil, errors.New("refusal classifier needs a fixed-dimension embedder, not tfidf")
	}
	cls, err := refusal.LoadClassifier(cfg.ClassifierPath)
	if err != nil {
		return nil, fmt.Errorf("load refusal classifier: %w", err)
	}
	return refusal.NewDetector(emb, cls, cfg.Phrases...), nil
}

func enabledTools(cfg config.ToolsConfig) []tools.Tool {
	var out []tools.Tool
	if cfg.Calculator {
		out = append(out, tools.Calculator())
	}
	if cfg.FetchPage {
		out = append(out, tools.Fetch(tools.FetchConfig{
			Client:       &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSecs) * time.Second},
			MaxChars:     cfg.FetchMaxChars,
			AllowPrivate: cfg.FetchAllowPrivate,
		}))
	}
	return out
}

// reload reads the input paths again and swaps in a new pool.
func (a *app) reload(ctx context.Context) error {
	var docs []domain.Document
	if len(a.paths) > 0 {
		loaded, err := ingest.Load(ctx, a.paths)
		if err != nil {
			return err
		}
		docs = loaded
	}
	if _, err := a.engine.Rebuild(ctx, docs); err != nil {
		return err
	}
	a.docs = docs
	return nil
}

func (a *app) summary() string {
	return summarizer.NewFrequency().Header(a.docs)
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logutil.GetLogger(context.Background()).Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
