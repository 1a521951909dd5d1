package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// WrapLRU puts an in-memory expiring cache in front of e. Corpus-fitted
// embedders are returned unchanged: their vectors depend on the corpus, not
// only on the text.
func WrapLRU(e domain.Embedder, size int, ttl time.Duration) domain.Embedder {
	if e == nil || size <= 0 || ttl <= 0 || isFitter(e) {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  domain.Embedder
	cache *expirable.LRU[string, []float64]
}

func (l *lruEmbedder) Name() string { return l.next.Name() }

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key, _ := buildCacheKey(l.next.Name(), text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("model", l.next.Name()))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func isFitter(e domain.Embedder) bool {
	_, ok := e.(domain.Fitter)
	return ok
}

func buildCacheKey(model, text string) (key, contentHash string) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash = hex.EncodeToString(hash[:])
	return "embed:" + model + ":" + contentHash, contentHash
}

func cloneEmbedding(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float64, len(values))
	copy(clone, values)
	return clone
}
