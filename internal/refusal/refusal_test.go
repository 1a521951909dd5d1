package refusal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vec   []float64
	calls int
}

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	s.calls++
	return s.vec, nil
}

func TestPhraseFastPathSkipsModels(t *testing.T) {
	emb := &stubEmbedder{vec: []float64{0}}
	d := NewDetector(emb, &LogisticClassifier{Weights: []float64{1}})
	for _, answer := range []string{
		"I'm sorry, I cannot help with that.",
		"i don’t know the answer",
		"Honestly I do not have that information",
		"I AM SORRY",
	} {
		ok, err := d.IsRefusal(context.Background(), answer)
		require.NoError(t, err)
		require.True(t, ok, answer)
	}
	require.Zero(t, emb.calls)
}

func TestClassifierSlowPath(t *testing.T) {
	ctx := context.Background()
	clf := &LogisticClassifier{Weights: []float64{4, -4}, Bias: 0}

	refusing := NewDetector(&stubEmbedder{vec: []float64{1, 0}}, clf)
	ok, err := refusing.IsRefusal(ctx, "That is outside what I can say.")
	require.NoError(t, err)
	require.True(t, ok)

	answering := NewDetector(&stubEmbedder{vec: []float64{0, 1}}, clf)
	ok, err = answering.IsRefusal(ctx, "Paris is the capital of France.")
	require.NoError(t, err)
	require.False(t, ok)

	// probability exactly 0.5 is not a refusal
	even := NewDetector(&stubEmbedder{vec: []float64{0, 0}}, clf)
	ok, err = even.IsRefusal(ctx, "maybe")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithoutClassifierOnlyPhrasesCount(t *testing.T) {
	ok, err := NewDetector(nil, nil).IsRefusal(context.Background(), "Unclear.")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCustomPhrases(t *testing.T) {
	d := NewDetector(nil, nil, "no comment")
	ok, err := d.IsRefusal(context.Background(), "No comment at this time")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = d.IsRefusal(context.Background(), "I'm sorry")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClassifierDimensionMismatch(t *testing.T) {
	d := NewDetector(&stubEmbedder{vec: []float64{1, 2, 3}}, &LogisticClassifier{Weights: []float64{1}})
	_, err := d.IsRefusal(context.Background(), "text")
	require.ErrorIs(t, err, ErrDimension)
}

func TestLoadClassifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: [0.5, -1.25]\nbias: 0.1\n"), 0o644))
	c, err := LoadClassifier(path)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, -1.25}, c.Weights)
	require.InDelta(t, 0.1, c.Bias, 1e-12)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("bias: 1\n"), 0o644))
	_, err = LoadClassifier(empty)
	require.Error(t, err)
}
