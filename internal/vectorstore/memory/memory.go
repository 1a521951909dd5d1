package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// progressEvery controls how often pool construction logs progress.
const progressEvery = 50

var errDimensionMismatch = errors.New("vector dimension mismatch")

// Pool is an immutable in-memory document pool: an ordered slice of
// documents plus the parallel slice of their embeddings.
type Pool struct {
	embedder  domain.Embedder
	documents []domain.Document
	vectors   [][]float64
	dimension int
}

// Build embeds every document and returns the finished pool. Corpus-fitted
// embedders are fitted on the documents first and the fitted instance is kept
// by the pool. Any change to the document set means building a new pool.
func Build(ctx context.Context, embedder domain.Embedder, documents []domain.Document) (*Pool, error) {
	if embedder == nil {
		return nil, errors.New("pool requires an embedder")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("embedder", embedder.Name()))
	p := &Pool{embedder: embedder}
	if len(documents) == 0 {
		return p, nil
	}
	if f, ok := embedder.(domain.Fitter); ok {
		fitted, err := f.Fit(ctx, domain.Texts(documents))
		if err != nil {
			return nil, fmt.Errorf("fit embedder: %w", err)
		}
		p.embedder = fitted
	}
	p.documents = make([]domain.Document, len(documents))
	copy(p.documents, documents)
	p.vectors = make([][]float64, len(documents))

	logger.Info("generating embeddings for documents", zap.Int("documents", len(documents)))
	for i, doc := range p.documents {
		vec, err := p.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return nil, fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if i == 0 {
			p.dimension = len(vec)
		} else if len(vec) != p.dimension {
			return nil, fmt.Errorf("%w: document %s has %d, want %d", errDimensionMismatch, doc.ID, len(vec), p.dimension)
		}
		p.vectors[i] = vec
		if (i+1)%progressEvery == 0 {
			logger.Debug("document embedding progress", zap.Int("done", i+1), zap.Int("total", len(documents)))
		}
	}
	return p, nil
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.documents)
}

func (p *Pool) Document(i int) domain.Document { return p.documents[i] }

func (p *Pool) Vector(i int) []float64 { return p.vectors[i] }

func (p *Pool) Embedder() domain.Embedder { return p.embedder }

// Dimension is the length of every vector in the pool, 0 when empty.
func (p *Pool) Dimension() int { return p.dimension }

// Documents returns a copy of the pooled documents in pool order.
func (p *Pool) Documents() []domain.Document {
	if p == nil {
		return nil
	}
	out := make([]domain.Document, len(p.documents))
	copy(out, p.documents)
	return out
}
