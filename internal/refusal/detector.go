package refusal

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// Threshold is the refusal probability above which an answer is a refusal.
const Threshold = 0.5

// DefaultPhrases are matched case-insensitively before any model is asked.
var DefaultPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"i don't",
	"i do not",
}

// Detector classifies generated answers as refusals. A literal phrase check
// runs first; the embedding classifier only sees answers it did not catch.
type Detector struct {
	phrases    []string
	embedder   domain.Embedder
	classifier Classifier
}

// NewDetector builds a detector. embedder and classifier may both be nil, in
// which case only the phrase check runs.
func NewDetector(embedder domain.Embedder, classifier Classifier, phrases ...string) *Detector {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalize(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Detector{phrases: normalized, embedder: embedder, classifier: classifier}
}

// IsRefusal reports whether answer declines to answer.
func (d *Detector) IsRefusal(ctx context.Context, answer string) (bool, error) {
	text := normalize(answer)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return true, nil
		}
	}
	if d.embedder == nil || d.classifier == nil || text == "" {
		return false, nil
	}
	vec, err := d.embedder.Embed(ctx, answer)
	if err != nil {
		return false, fmt.Errorf("embed answer: %w", err)
	}
	p, err := d.classifier.RefusalProbability(vec)
	if err != nil {
		return false, err
	}
	logutil.GetLogger(ctx).Debug("refusal classifier", zap.Float64("probability", p))
	return p > Threshold, nil
}

func normalize(s string) string {
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}
