package summarizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/zakerytclarke/teapot/internal/domain"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Frequency describes a document pool by its most representative sentences,
// ranked by normalised word frequency across the whole pool.
type Frequency struct {
	stopwords map[string]struct{}
}

func NewFrequency() *Frequency {
	return &Frequency{stopwords: defaultStopwords()}
}

// Summarize picks up to maxSentences sentences from docs and returns them in
// pool order.
func (f *Frequency) Summarize(docs []domain.Document, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sentences []string
	for _, d := range docs {
		found := sentencePattern.FindAllString(d.Text, -1)
		if len(found) == 0 && strings.TrimSpace(d.Text) != "" {
			found = []string{d.Text}
		}
		for _, s := range found {
			if s = strings.Join(strings.Fields(s), " "); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	freq := f.frequencies(sentences)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		if len(toks) > 0 {
			total /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// Keywords returns the n most frequent non-stopwords, most frequent first and
// alphabetical among equals.
func (f *Frequency) Keywords(docs []domain.Document, n int) []string {
	freq := f.frequencies(domain.Texts(docs))
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if n < len(words) {
		words = words[:n]
	}
	return words
}

// Header is a one-line description of a pool for status bars.
func (f *Frequency) Header(docs []domain.Document) string {
	if len(docs) == 0 {
		return "No documents loaded."
	}
	sources := make(map[string]struct{})
	for _, d := range docs {
		sources[d.Metadata.Source] = struct{}{}
	}
	line := fmt.Sprintf("%d documents from %d sources", len(docs), len(sources))
	if kw := f.Keywords(docs, 5); len(kw) > 0 {
		line += " · " + strings.Join(kw, ", ")
	}
	return line
}

// frequencies counts non-stopword tokens and normalises by the maximum.
func (f *Frequency) frequencies(texts []string) map[string]float64 {
	freq := map[string]float64{}
	for _, t := range texts {
		for _, tok := range tokens(t) {
			if _, ok := f.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	return freq
}

func tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "we", "our", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
