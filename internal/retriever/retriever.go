package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/vectorstore"
)

// Retrieve ranks the pool against query using the session settings. It
// returns nothing, without error, when retrieval is disabled or the pool is
// empty.
func Retrieve(ctx context.Context, settings domain.Settings, query string, pool vectorstore.Storage) ([]domain.ScoredDocument, error) {
	if !settings.UseRetrieval {
		return nil, nil
	}
	return Rank(ctx, query, pool, settings.TopK, settings.SimilarityThreshold)
}

// Rank returns at most topK documents whose cosine similarity to query is at
// least threshold, best first. Equal scores keep pool order.
func Rank(ctx context.Context, query string, pool vectorstore.Storage, topK int, threshold float64) ([]domain.ScoredDocument, error) {
	if pool == nil || pool.Len() == 0 || topK <= 0 {
		return nil, nil
	}
	qvec, err := pool.Embedder().Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates := make([]domain.ScoredDocument, 0, pool.Len())
	for i := 0; i < pool.Len(); i++ {
		score := CosineSimilarity(qvec, pool.Vector(i))
		if score < threshold {
			continue
		}
		candidates = append(candidates, domain.ScoredDocument{Document: pool.Document(i), Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	logutil.GetLogger(ctx).Debug("retrieval finished",
		zap.Int("pool", pool.Len()),
		zap.Int("returned", len(candidates)),
		zap.Float64("threshold", threshold),
	)
	return candidates, nil
}

// CosineSimilarity of a and b. Zero vectors and length mismatches score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Texts extracts the document texts of a ranking, in order.
func Texts(results []domain.ScoredDocument) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Text
	}
	return out
}
