package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zakerytclarke/teapot/internal/extract"
)

// Tool describes a capability the engine can call when the model alone
// cannot answer.
type Tool struct {
	Name        string
	Description string
	Input       *extract.Schema
	// Invoke is only called with a record built from Input.
	Invoke func(ctx context.Context, args extract.Record) (any, error)
	// ReturnDirect makes the tool output the final answer instead of feeding
	// it into another generation round.
	ReturnDirect bool
}

// Registry is the fixed set of tools known to an engine.
type Registry struct {
	tools []Tool
}

// NewRegistry validates and registers tools. Names must be unique ignoring case.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{}
	for _, t := range tools {
		if strings.TrimSpace(t.Name) == "" {
			return nil, errors.New("tool with empty name")
		}
		if t.Invoke == nil {
			return nil, fmt.Errorf("tool %s has no implementation", t.Name)
		}
		if t.Input == nil {
			return nil, fmt.Errorf("tool %s has no input schema", t.Name)
		}
		if err := t.Input.Validate(); err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		if _, dup := r.Lookup(t.Name); dup {
			return nil, fmt.Errorf("tool %s registered twice", t.Name)
		}
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Lookup finds a tool by case-insensitive name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return Tool{}, false
	}
	for _, t := range r.tools {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Tool{}, false
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	return append([]Tool(nil), r.tools...)
}

// Fold renders a tool call and its result for the follow-up prompt.
func Fold(name, args, result string) string {
	return fmt.Sprintf("%s(%s) => %s", name, args, result)
}
