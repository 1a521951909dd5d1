package summarizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/domain"
)

func docs() []domain.Document {
	return []domain.Document{
		{ID: "1", Text: "Green tea is steamed. Green tea is mild.", Metadata: domain.Metadata{Source: "tea.txt"}},
		{ID: "2", Text: "Coffee is roasted.", Metadata: domain.Metadata{Source: "coffee.txt"}},
		{ID: "3", Text: "Oolong tea sits between green and black tea.", Metadata: domain.Metadata{Source: "tea.txt"}},
	}
}

func TestSummarizeKeepsPoolOrder(t *testing.T) {
	got := NewFrequency().Summarize(docs(), 2)
	require.Equal(t, "Green tea is steamed. Oolong tea sits between green and black tea.", got)
}

func TestSummarizeEdges(t *testing.T) {
	f := NewFrequency()
	require.Equal(t, "", f.Summarize(nil, 3))
	require.Equal(t, "no punctuation here", f.Summarize([]domain.Document{{Text: "no  punctuation here"}}, 3))
}

func TestKeywords(t *testing.T) {
	require.Equal(t, []string{"tea", "green"}, NewFrequency().Keywords(docs(), 2))
}

func TestHeader(t *testing.T) {
	f := NewFrequency()
	require.Equal(t, "No documents loaded.", f.Header(nil))
	require.Equal(t, "3 documents from 2 sources · tea, green, black, coffee, mild", f.Header(docs()))
}
