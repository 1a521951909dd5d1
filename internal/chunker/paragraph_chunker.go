package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// DefaultMaxTokens is the budget used when a non-positive one is given.
const DefaultMaxTokens = 512

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// CountTokens counts whitespace-delimited tokens.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Chunk splits text into segments of at most maxTokens tokens.
// Text within budget comes back unchanged as the only segment. Otherwise
// paragraphs become segments, and paragraphs over budget are cut into
// consecutive windows of maxTokens tokens.
func Chunk(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if CountTokens(text) <= maxTokens {
		return []string{text}
	}
	var chunks []string
	for _, para := range paragraphBreak.Split(text, -1) {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if len(words) <= maxTokens {
			chunks = append(chunks, strings.TrimSpace(para))
			continue
		}
		for start := 0; start < len(words); start += maxTokens {
			end := start + maxTokens
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, strings.Join(words[start:end], " "))
		}
	}
	return chunks
}

// ParagraphChunker turns ingested documents into pool-sized documents.
type ParagraphChunker struct {
	maxTokens int
}

func NewParagraphChunker(maxTokens int) *ParagraphChunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ParagraphChunker{maxTokens: maxTokens}
}

// MaxTokens returns the per-chunk token budget.
func (c *ParagraphChunker) MaxTokens() int { return c.maxTokens }

// Chunk splits document into chunks that inherit its metadata. Chunk IDs are
// the document ID suffixed with the chunk position.
func (c *ParagraphChunker) Chunk(document domain.Document) []domain.Document {
	if strings.TrimSpace(document.Text) == "" {
		return nil
	}
	pieces := Chunk(document.Text, c.maxTokens)
	out := make([]domain.Document, 0, len(pieces))
	for idx, text := range pieces {
		md := document.Metadata
		md.Tags = append([]string(nil), document.Metadata.Tags...)
		md.Index = idx
		out = append(out, domain.Document{
			ID:       document.ID + ":" + strconv.Itoa(idx),
			Text:     text,
			Metadata: md,
		})
	}
	return out
}
