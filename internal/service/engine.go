package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/chunker"
	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/extract"
	"github.com/zakerytclarke/teapot/internal/prompt"
	"github.com/zakerytclarke/teapot/internal/refusal"
	"github.com/zakerytclarke/teapot/internal/retriever"
	"github.com/zakerytclarke/teapot/internal/tools"
	"github.com/zakerytclarke/teapot/internal/vectorstore/memory"
)

// Options wires an Engine.
type Options struct {
	Settings  domain.Settings
	Embedder  domain.Embedder
	Generator domain.Generator
	// Refusal defaults to the phrase-only detector.
	Refusal tools.RefusalChecker
	Tools   *tools.Registry
	System  string
}

// Answer is the result of a query or chat turn.
type Answer struct {
	Text    string                  `json:"answer"`
	Prompt  string                  `json:"prompt,omitempty"`
	Sources []domain.ScoredDocument `json:"sources"`
	Steps   []tools.Step            `json:"steps,omitempty"`
	Calls   []tools.Call            `json:"calls,omitempty"`
}

// Engine answers queries against a document pool. Settings are fixed at
// construction; the pool is replaced wholesale by Rebuild.
type Engine struct {
	settings  domain.Settings
	embedder  domain.Embedder
	generator domain.Generator
	refusal   tools.RefusalChecker
	registry  *tools.Registry
	system    string
	chunker   *chunker.ParagraphChunker
	composer  *prompt.Composer
	pool      atomic.Pointer[memory.Pool]
}

func New(opts Options) (*Engine, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Embedder == nil {
		return nil, errors.New("engine needs an embedder")
	}
	if opts.Generator == nil {
		return nil, errors.New("engine needs a generator")
	}
	if opts.Refusal == nil {
		opts.Refusal = refusal.NewDetector(nil, nil)
	}
	return &Engine{
		settings:  opts.Settings,
		embedder:  opts.Embedder,
		generator: opts.Generator,
		refusal:   opts.Refusal,
		registry:  opts.Tools,
		system:    opts.System,
		chunker:   chunker.NewParagraphChunker(opts.Settings.MaxContextTokens),
		composer:  prompt.NewComposer(opts.Settings, opts.Embedder),
	}, nil
}

func (e *Engine) Settings() domain.Settings { return e.settings }

// Pool returns the current pool; nil before the first Rebuild.
func (e *Engine) Pool() *memory.Pool { return e.pool.Load() }

// Rebuild chunks docs (when chunking is enabled), embeds them into a new pool
// and swaps it in. Readers keep the previous pool until the swap.
func (e *Engine) Rebuild(ctx context.Context, docs []domain.Document) (*memory.Pool, error) {
	if e.settings.UseChunking {
		chunked := make([]domain.Document, 0, len(docs))
		for _, d := range docs {
			chunked = append(chunked, e.chunker.Chunk(d)...)
		}
		docs = chunked
	}
	pool, err := memory.Build(ctx, e.embedder, docs)
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}
	e.pool.Store(pool)
	if e.settings.Verbose {
		logutil.GetLogger(ctx).Info("document pool ready",
			zap.Int("documents", pool.Len()),
			zap.String("embedder", pool.Embedder().Name()),
			zap.Int("dimension", pool.Dimension()),
		)
	}
	return pool, nil
}

// Retrieve ranks the current pool against query.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]domain.ScoredDocument, error) {
	return retriever.Retrieve(ctx, e.settings, query, e.pool.Load())
}

// RetrieveContext joins the retrieved documents into one context block.
func (e *Engine) RetrieveContext(ctx context.Context, query string) (string, error) {
	found, err := e.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	return strings.Join(retriever.Texts(found), "\n"), nil
}

// Query answers a single question with optional caller-supplied context.
func (e *Engine) Query(ctx context.Context, query, supplied string) (Answer, error) {
	return e.answer(ctx, query, supplied, nil)
}

// Chat answers the last user turn of conv; every other turn is history.
func (e *Engine) Chat(ctx context.Context, conv domain.Conversation, supplied string) (Answer, error) {
	query, history := conv.Split()
	return e.answer(ctx, query, supplied, history)
}

// Extract fills schema from the retrieved and supplied context.
func (e *Engine) Extract(ctx context.Context, schema *extract.Schema, query, supplied string) (extract.Record, error) {
	var source extract.ContextSource
	if e.settings.UseRetrieval && e.pool.Load().Len() > 0 {
		source = e
	}
	return extract.NewExtractor(e.generator, source).Extract(ctx, schema, query, supplied)
}

func (e *Engine) answer(ctx context.Context, query, supplied string, history domain.Conversation) (Answer, error) {
	logger := logutil.GetLogger(ctx)
	found, err := e.Retrieve(ctx, query)
	if err != nil {
		return Answer{}, err
	}
	text, err := e.composer.Compose(ctx, prompt.Input{
		Query:     query,
		Retrieved: retriever.Texts(found),
		Supplied:  supplied,
		History:   history,
		System:    e.system,
	})
	if err != nil {
		return Answer{}, err
	}
	generated, err := e.generator.Generate(ctx, text)
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}
	ans := Answer{Text: generated, Prompt: text, Sources: found}
	if e.settings.UseTools && e.registry.Len() > 0 {
		d := tools.NewDispatcher(e.registry, e.generator, e.refusal, extract.NewExtractor(e.generator, nil), e.settings.MaxToolCalls)
		outcome, err := d.Run(ctx, query, text, generated)
		if err != nil {
			return Answer{}, err
		}
		ans.Text = outcome.Answer
		ans.Steps = outcome.Steps
		ans.Calls = outcome.Calls
	}
	if e.settings.Verbose {
		fields := []zap.Field{
			zap.Int("sources", len(found)),
			zap.Int("prompt_len", len(text)),
			zap.Int("tool_calls", len(ans.Calls)),
		}
		for i, s := range found {
			fields = append(fields, zap.Float64(fmt.Sprintf("score_%d", i), s.Score))
		}
		logger.Debug("query answered", fields...)
	}
	return ans, nil
}
