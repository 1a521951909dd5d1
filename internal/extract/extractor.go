package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// ContextSource supplies retrieved grounding for a query.
type ContextSource interface {
	RetrieveContext(ctx context.Context, query string) (string, error)
}

// Extractor fills a schema one field at a time from generated answers.
type Extractor struct {
	generator domain.Generator
	source    ContextSource
}

// NewExtractor creates an extractor. source may be nil to ground answers only
// on the supplied context.
func NewExtractor(generator domain.Generator, source ContextSource) *Extractor {
	return &Extractor{generator: generator, source: source}
}

// Extract issues one generation per field and builds the record from the
// coerced answers. A required field that cannot be read fails the whole
// extraction with a *ValidationError.
func (x *Extractor) Extract(ctx context.Context, schema *Schema, query, supplied string) (Record, error) {
	if err := schema.Validate(); err != nil {
		return Record{}, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("schema", schema.Name))

	var sections []string
	if x.source != nil {
		retrieved, err := x.source.RetrieveContext(ctx, query)
		if err != nil {
			return Record{}, err
		}
		sections = append(sections, retrieved)
	}
	sections = append(sections, supplied)
	if strings.TrimSpace(query) != strings.TrimSpace(supplied) {
		sections = append(sections, query)
	}
	grounding := joinNonEmpty(sections)

	values := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		answer, err := x.generator.Generate(ctx, joinNonEmpty([]string{grounding, Instruction(f)}))
		if err != nil {
			return Record{}, fmt.Errorf("extract field %s: %w", f.Name, err)
		}
		v, err := Coerce(f.Type, answer)
		if err != nil {
			return Record{}, err
		}
		logger.Debug("field extracted", zap.String("field", f.Name), zap.String("raw", answer), zap.Bool("null", v == nil))
		values[f.Name] = v
	}
	return schema.Build(values)
}

// Instruction is the extraction request issued for one field.
func Instruction(f Field) string {
	if f.Description != "" {
		return fmt.Sprintf("Extract the field %s (%s) to a %s", f.Name, f.Description, f.Type)
	}
	return fmt.Sprintf("Extract the field %s to a %s", f.Name, f.Type)
}

func joinNonEmpty(sections []string) string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}
