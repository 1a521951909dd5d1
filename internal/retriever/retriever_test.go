package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/testutil"
	"github.com/zakerytclarke/teapot/internal/vectorstore/memory"
)

func buildPool(t *testing.T, e domain.Embedder, texts ...string) *memory.Pool {
	t.Helper()
	p, err := memory.Build(context.Background(), e, testutil.Docs(texts...))
	require.NoError(t, err)
	return p
}

func TestRetrieveLandmarkScenario(t *testing.T) {
	pool := buildPool(t, testutil.LandmarkEmbedder(), testutil.EiffelTower, testutil.GreatWall)
	settings := domain.DefaultSettings()
	settings.TopK = 1
	settings.SimilarityThreshold = 0.5

	got, err := Retrieve(context.Background(), settings, "What landmark was constructed in the 1800s?", pool)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, testutil.EiffelTower, got[0].Document.Text)
}

func TestRetrieveDisabledOrEmpty(t *testing.T) {
	ctx := context.Background()
	settings := domain.DefaultSettings()

	empty := buildPool(t, testutil.HashEmbedder{Size: 8})
	got, err := Retrieve(ctx, settings, "anything", empty)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Retrieve(ctx, settings, "anything", nil)
	require.NoError(t, err)
	require.Empty(t, got)

	settings.UseRetrieval = false
	pool := buildPool(t, testutil.HashEmbedder{Size: 8}, "anything")
	got, err = Retrieve(ctx, settings, "anything", pool)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRankTiesKeepPoolOrder(t *testing.T) {
	pool := buildPool(t, testutil.HashEmbedder{Size: 64}, "red apple", "green pear", "red apple", "red apple")
	got, err := Rank(context.Background(), "red apple", pool, 3, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"a", "c", "d"}, []string{got[0].Document.ID, got[1].Document.ID, got[2].Document.ID})
}

func TestRankProperties(t *testing.T) {
	ctx := context.Background()
	var texts []string
	for i := 0; i < 30; i++ {
		texts = append(texts, fmt.Sprintf("item %d shares words like alpha%d beta%d gamma", i, i%4, i%6))
	}
	pool := buildPool(t, testutil.HashEmbedder{Size: 32}, texts...)
	query := "alpha1 beta3 gamma item"

	prevLen := pool.Len() + 1
	for _, threshold := range []float64{0, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1} {
		for _, k := range []int{1, 3, 10, 100} {
			got, err := Rank(ctx, query, pool, k, threshold)
			require.NoError(t, err)
			require.LessOrEqual(t, len(got), k)

			survivors := 0
			for i := 0; i < pool.Len(); i++ {
				qv, _ := pool.Embedder().Embed(ctx, query)
				if CosineSimilarity(qv, pool.Vector(i)) >= threshold {
					survivors++
				}
			}
			require.Equal(t, min(k, survivors), len(got))

			for i := 1; i < len(got); i++ {
				require.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
			again, err := Rank(ctx, query, pool, k, threshold)
			require.NoError(t, err)
			require.Equal(t, got, again)
		}
		all, err := Rank(ctx, query, pool, pool.Len(), threshold)
		require.NoError(t, err)
		require.LessOrEqual(t, len(all), prevLen)
		prevLen = len(all)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if text == "query" {
		return nil, errors.New("embedder unavailable")
	}
	return []float64{1}, nil
}

func TestRankPropagatesEmbedderFailure(t *testing.T) {
	pool := buildPool(t, failingEmbedder{}, "doc")
	_, err := Rank(context.Background(), "query", pool, 1, 0)
	require.ErrorContains(t, err, "embedder unavailable")
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float64
		want float64
	}{
		{[]float64{1, 0}, []float64{1, 0}, 1},
		{[]float64{1, 0}, []float64{0, 1}, 0},
		{[]float64{1, 1}, []float64{-1, -1}, -1},
		{[]float64{0, 0}, []float64{1, 1}, 0},
		{[]float64{1}, []float64{1, 2}, 0},
		{nil, nil, 0},
	}
	for _, c := range cases {
		require.InDelta(t, c.want, CosineSimilarity(c.a, c.b), 1e-9)
	}
}
