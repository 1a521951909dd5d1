package embedcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/domain"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	c.calls++
	return []float64{float64(len(text)), 1}, nil
}

type fitterEmbedder struct{ countingEmbedder }

func (f *fitterEmbedder) Fit(context.Context, []string) (domain.Embedder, error) { return f, nil }

func TestLRUCachesByText(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 8, time.Minute)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	a[0] = 99 // callers may mutate what they get back
	b, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, []float64{5, 1}, b)
	_, err = e.Embed(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "counting", e.Name())
}

func TestWrappersSkipFitters(t *testing.T) {
	f := &fitterEmbedder{}
	require.Same(t, f, WrapLRU(f, 8, time.Minute))
	require.Same(t, f, WrapStore(f, &Store{}))
}

func TestWrapLRUDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRU(next, 0, time.Minute))
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "embeddings.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	next := &countingEmbedder{}
	e := WrapStore(next, store)
	vec, err := e.Embed(ctx, "persist me")
	require.NoError(t, err)
	require.Equal(t, []float64{10, 1}, vec)
	require.NoError(t, store.Close())

	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()
	next2 := &countingEmbedder{}
	vec, err = WrapStore(next2, store).Embed(ctx, "persist me")
	require.NoError(t, err)
	require.Equal(t, []float64{10, 1}, vec)
	require.Zero(t, next2.calls)
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "e.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "m", "h", []float64{1.5, -2}))
	got, ok, err := store.Get(ctx, "m", "h")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{1.5, -2}, got)

	n, err := store.Prune(ctx, -time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, err = store.Get(ctx, "m", "h")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeVectorRejectsCorruptBlob(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
}
