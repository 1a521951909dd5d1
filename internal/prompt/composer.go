package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/chunker"
	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/retriever"
	"github.com/zakerytclarke/teapot/internal/vectorstore/memory"
)

// Input holds every section a prompt can carry.
type Input struct {
	Query     string
	Retrieved []string
	Supplied  string
	History   domain.Conversation
	System    string
}

// Composer assembles prompts. Its embedder is used to re-rank supplied
// context that does not fit the token budget.
type Composer struct {
	settings domain.Settings
	embedder domain.Embedder
}

func NewComposer(settings domain.Settings, embedder domain.Embedder) *Composer {
	return &Composer{settings: settings, embedder: embedder}
}

// Compose joins, one per line and skipping empty ones, the retrieved
// documents, the supplied context, the conversation history, the system
// directive and the query.
func (c *Composer) Compose(ctx context.Context, in Input) (string, error) {
	supplied, err := c.fitSupplied(ctx, in.Query, in.Supplied)
	if err != nil {
		return "", err
	}
	sections := []string{
		strings.Join(in.Retrieved, "\n"),
		supplied,
		History(in.History),
		in.System,
		in.Query,
	}
	kept := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// fitSupplied replaces oversized supplied context by its chunks most relevant
// to the query.
func (c *Composer) fitSupplied(ctx context.Context, query, supplied string) (string, error) {
	if !c.settings.UseChunking || c.embedder == nil {
		return supplied, nil
	}
	tokens := chunker.CountTokens(supplied)
	if tokens <= c.settings.MaxContextTokens {
		return supplied, nil
	}
	pieces := chunker.Chunk(supplied, c.settings.MaxContextTokens)
	docs := make([]domain.Document, len(pieces))
	for i, p := range pieces {
		docs[i] = domain.Document{ID: "supplied:" + strconv.Itoa(i), Text: p, Metadata: domain.Metadata{Source: "supplied", Index: i}}
	}
	pool, err := memory.Build(ctx, c.embedder, docs)
	if err != nil {
		return "", fmt.Errorf("index supplied context: %w", err)
	}
	ranked, err := retriever.Rank(ctx, query, pool, c.settings.TopK, c.settings.SimilarityThreshold)
	if err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Debug("supplied context re-ranked",
		zap.Int("tokens", tokens),
		zap.Int("chunks", len(pieces)),
		zap.Int("kept", len(ranked)),
	)
	return strings.Join(retriever.Texts(ranked), "\n"), nil
}

// History renders turns as "role: content" lines in their original order.
func History(turns domain.Conversation) string {
	return turns.String()
}
