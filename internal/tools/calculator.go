package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/zakerytclarke/teapot/internal/extract"
)

const CalculatorName = "calculator"

var (
	spokenOperators = strings.NewReplacer(
		"divided by", "/",
		"multiplied by", "*",
		"times", "*",
		"plus", "+",
		"minus", "-",
		"×", "*",
		"÷", "/",
	)
	nonArithmetic = regexp.MustCompile(`[^0-9.+\-*/%() ]`)
)

// Calculator evaluates an arithmetic expression and folds the result back into
// the prompt.
func Calculator() Tool {
	return Tool{
		Name:        CalculatorName,
		Description: "Evaluates an arithmetic expression such as 12 * (3 + 4)",
		Input: extract.MustSchema(CalculatorName, extract.Field{
			Name:        "expression",
			Type:        extract.Text,
			Description: "arithmetic expression using numbers and + - * / % ( )",
		}),
		Invoke: func(_ context.Context, args extract.Record) (any, error) {
			raw, _ := args.Text("expression")
			return Evaluate(raw)
		},
	}
}

// Evaluate computes an arithmetic expression. Spoken operators are accepted
// and any other text is dropped.
func Evaluate(expression string) (any, error) {
	cleaned := spokenOperators.Replace(strings.ToLower(expression))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(nonArithmetic.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return nil, errors.New("empty expression")
	}
	out, err := expr.Eval(cleaned, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", cleaned, err)
	}
	switch v := out.(type) {
	case int, float64:
		return v, nil
	}
	return nil, fmt.Errorf("evaluate %q: non-numeric result %T", cleaned, out)
}
