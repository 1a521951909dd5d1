package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/testutil"
)

func TestCoerceExamples(t *testing.T) {
	v, err := Coerce(Float, "$2500")
	require.NoError(t, err)
	require.Equal(t, 2500.0, v)

	v, err = Coerce(Boolean, "Yes, pets are welcome")
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = Coerce(Integer, "2 bedrooms")
	require.NoError(t, err)
	require.Equal(t, int64(2), v)

	v, err = Coerce(Text, "   555-123-4567  ")
	require.NoError(t, err)
	require.Equal(t, "555-123-4567", v)
}

func TestCoerceEdgeCases(t *testing.T) {
	cases := []struct {
		typ  FieldType
		raw  string
		want any
	}{
		{Boolean, "No pets allowed", false},
		{Boolean, "TRUE", true},
		{Boolean, "nothing definite", nil},
		{Boolean, "yesterday", nil},
		{Float, "-3.5 degrees", -3.5},
		{Float, "about 1,200.50 dollars", 1200.5},
		{Float, "unknown", nil},
		{Float, "1.2.3", nil},
		{Integer, "2.5 baths", nil},
		{Integer, "2.0", int64(2)},
		{Integer, "range 10-20", int64(1020)},
		{Integer, "9223372036854775807", int64(9223372036854775807)},
		{Integer, "-9223372036854775808", int64(-9223372036854775808)},
		{Integer, "9223372036854775808 units", nil},
		{Integer, "9007199254740993", int64(9007199254740993)},
		{Integer, "12.000", int64(12)},
		{Integer, "1.2.3", nil},
		{Text, "   ", ""},
	}
	for _, c := range cases {
		v, err := Coerce(c.typ, c.raw)
		require.NoError(t, err)
		require.Equal(t, c.want, v, "%s %q", c.typ, c.raw)
	}
}

func TestCoerceUnsupportedType(t *testing.T) {
	_, err := Coerce(FieldType("date"), "2024-01-01")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNewSchemaValidation(t *testing.T) {
	_, err := NewSchema("bad", Field{Name: "when", Type: "date"})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewSchema("dup", Field{Name: "a", Type: Text}, Field{Name: "a", Type: Text})
	require.ErrorIs(t, err, ErrInvalidSchema)

	_, err = NewSchema("blank", Field{Name: " ", Type: Text})
	require.ErrorIs(t, err, ErrInvalidSchema)

	var missing *Schema
	require.ErrorIs(t, missing.Validate(), ErrInvalidSchema)
}

func TestBuildValidatesRecord(t *testing.T) {
	s := MustSchema("listing",
		Field{Name: "rent", Type: Float},
		Field{Name: "beds", Type: Integer},
		Field{Name: "pets", Type: Boolean, Optional: true},
	)
	r, err := s.Build(map[string]any{"rent": 2500.0, "beds": 2})
	require.NoError(t, err)
	beds, ok := r.Int("beds")
	require.True(t, ok)
	require.Equal(t, int64(2), beds)
	v, ok := r.Get("pets")
	require.True(t, ok)
	require.Nil(t, v)
	require.Equal(t, "rent=2500, beds=2, pets=null", r.String())

	_, err = s.Build(map[string]any{"rent": "cheap", "extra": 1})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 3)
	require.Equal(t, "rent", verr.Problems[0].Field)
	require.Equal(t, "beds", verr.Problems[1].Field)
	require.Equal(t, "extra", verr.Problems[2].Field)
}

func listingGenerator() *testutil.Generator {
	return &testutil.Generator{Respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "field rent"):
			return "$2500", nil
		case strings.Contains(prompt, "field pets"):
			return "Yes, pets are welcome", nil
		case strings.Contains(prompt, "field bedrooms"):
			return "2 bedrooms", nil
		case strings.Contains(prompt, "field phone"):
			return "   555-123-4567  ", nil
		}
		return "no idea", nil
	}}
}

func TestExtractListing(t *testing.T) {
	s := MustSchema("listing",
		Field{Name: "rent", Type: Float, Description: "monthly rent"},
		Field{Name: "pets", Type: Boolean},
		Field{Name: "bedrooms", Type: Integer},
		Field{Name: "phone", Type: Text},
	)
	gen := listingGenerator()
	ad := "Sunny 2 bedroom, $2500/month, pets ok. Call 555-123-4567."
	r, err := NewExtractor(gen, nil).Extract(context.Background(), s, "", ad)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"rent":     2500.0,
		"pets":     true,
		"bedrooms": int64(2),
		"phone":    "555-123-4567",
	}, r.Values())

	prompts := gen.Prompts()
	require.Len(t, prompts, 4)
	require.Equal(t, ad+"\nExtract the field rent (monthly rent) to a float", prompts[0])
	require.Equal(t, ad+"\nExtract the field pets to a boolean", prompts[1])
}

type staticSource string

func (s staticSource) RetrieveContext(context.Context, string) (string, error) { return string(s), nil }

func TestExtractPrependsRetrievedContext(t *testing.T) {
	s := MustSchema("q", Field{Name: "phone", Type: Text})
	gen := listingGenerator()
	_, err := NewExtractor(gen, staticSource("retrieved doc")).Extract(context.Background(), s, "phone number?", "supplied")
	require.NoError(t, err)
	require.Equal(t, "retrieved doc\nsupplied\nphone number?\nExtract the field phone to a text", gen.Prompts()[0])
}

func TestExtractRequiredNullFailsWhole(t *testing.T) {
	s := MustSchema("q", Field{Name: "rent", Type: Float}, Field{Name: "size", Type: Integer})
	_, err := NewExtractor(listingGenerator(), nil).Extract(context.Background(), s, "q", "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "size", verr.Problems[0].Field)
}

func TestExtractRejectsUnsupportedTypeBeforeGenerating(t *testing.T) {
	s := &Schema{Name: "q", Fields: []Field{{Name: "rent", Type: Float}, {Name: "when", Type: "date"}}}
	gen := listingGenerator()
	_, err := NewExtractor(gen, nil).Extract(context.Background(), s, "q", "")
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.Empty(t, gen.Prompts())
}

func TestExtractPropagatesGeneratorFailure(t *testing.T) {
	s := MustSchema("q", Field{Name: "rent", Type: Float})
	gen := &testutil.Generator{Respond: func(string) (string, error) { return "", errors.New("model offline") }}
	_, err := NewExtractor(gen, nil).Extract(context.Background(), s, "q", "")
	require.ErrorContains(t, err, "model offline")
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: customer
fields:
  - name: email
    type: text
    description: contact email
  - name: vip
    type: boolean
    optional: true
`), 0o644))
	s, err := LoadSchema(path)
	require.NoError(t, err)
	require.Equal(t, "customer", s.Name)
	require.Len(t, s.Fields, 2)
	require.True(t, s.Fields[1].Optional)
	require.Equal(t, "Extract the field email (contact email) to a text", Instruction(s.Fields[0]))
}
