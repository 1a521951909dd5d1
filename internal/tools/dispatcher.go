package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/extract"
)

// UnableToUseTool replaces the result of a tool whose arguments could not be
// extracted or whose invocation failed.
const UnableToUseTool = "unable to use tool"

// State is a dispatcher state.
type State string

const (
	StateGenerated     State = "GENERATED"
	StateCheckRefusal  State = "CHECK_REFUSAL"
	StateAccept        State = "ACCEPT"
	StateSelectTool    State = "SELECT_TOOL"
	StateNoToolMatched State = "NO_TOOL_MATCHED"
	StateExtractArgs   State = "EXTRACT_ARGS"
	StateExtractFailed State = "EXTRACT_FAILED"
	StateInvoke        State = "INVOKE"
	StateReturnDirect  State = "RETURN_DIRECT"
	StateRequery       State = "REQUERY"
)

// RefusalChecker classifies answers.
type RefusalChecker interface {
	IsRefusal(ctx context.Context, answer string) (bool, error)
}

// ArgumentExtractor binds tool arguments from text.
type ArgumentExtractor interface {
	Extract(ctx context.Context, schema *extract.Schema, query, supplied string) (extract.Record, error)
}

// Step is one visited state.
type Step struct {
	State  State  `json:"state"`
	Tool   string `json:"tool,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Call records one tool invocation.
type Call struct {
	Tool   string `json:"tool"`
	Args   string `json:"args"`
	Result string `json:"result"`
}

// Outcome is the final answer plus how it was reached.
type Outcome struct {
	Answer string `json:"answer"`
	Steps  []Step `json:"steps"`
	Calls  []Call `json:"calls,omitempty"`
	// Requeries counts follow-up generation rounds.
	Requeries int `json:"requeries"`
}

// Dispatcher runs the refusal-triggered tool loop.
type Dispatcher struct {
	registry  *Registry
	generator domain.Generator
	refusal   RefusalChecker
	extractor ArgumentExtractor
	maxCalls  int
}

func NewDispatcher(registry *Registry, generator domain.Generator, refusal RefusalChecker, extractor ArgumentExtractor, maxCalls int) *Dispatcher {
	if maxCalls < 0 {
		maxCalls = 0
	}
	return &Dispatcher{
		registry:  registry,
		generator: generator,
		refusal:   refusal,
		extractor: extractor,
		maxCalls:  maxCalls,
	}
}

// Run starts from an already generated answer to prompt. query is the user's
// question, used for tool selection and argument binding. At most maxCalls
// follow-up rounds are generated; when the budget is spent the last answer is
// returned whatever it is.
func (d *Dispatcher) Run(ctx context.Context, query, prompt, answer string) (Outcome, error) {
	logger := logutil.GetLogger(ctx)
	out := Outcome{Answer: answer}
	remaining := d.maxCalls
	var (
		toolContext []string
		tool        Tool
		args        extract.Record
	)
	state := StateGenerated
	for {
		switch state {
		case StateGenerated:
			out.Steps = append(out.Steps, Step{State: state})
			state = StateCheckRefusal

		case StateCheckRefusal:
			if remaining <= 0 || d.registry.Len() == 0 {
				out.Steps = append(out.Steps, Step{State: state, Detail: "no tool budget"})
				state = StateAccept
				continue
			}
			refused, err := d.refusal.IsRefusal(ctx, out.Answer)
			if err != nil {
				return out, fmt.Errorf("check refusal: %w", err)
			}
			out.Steps = append(out.Steps, Step{State: state, Detail: fmt.Sprintf("refusal=%t", refused)})
			if refused {
				state = StateSelectTool
			} else {
				state = StateAccept
			}

		case StateSelectTool:
			raw, err := d.generator.Generate(ctx, selectionPrompt(d.registry, query))
			if err != nil {
				return out, fmt.Errorf("select tool: %w", err)
			}
			out.Steps = append(out.Steps, Step{State: state, Detail: raw})
			var ok bool
			if tool, ok = d.registry.Lookup(toolName(raw)); ok {
				state = StateExtractArgs
			} else {
				state = StateNoToolMatched
			}

		case StateNoToolMatched:
			out.Steps = append(out.Steps, Step{State: state})
			state = StateAccept

		case StateExtractArgs:
			rec, err := d.extractor.Extract(ctx, tool.Input, query, query)
			if err != nil {
				if !isBindingFailure(err) {
					return out, fmt.Errorf("extract %s arguments: %w", tool.Name, err)
				}
				out.Steps = append(out.Steps, Step{State: state, Tool: tool.Name, Detail: err.Error()})
				state = StateExtractFailed
				continue
			}
			args = rec
			out.Steps = append(out.Steps, Step{State: state, Tool: tool.Name, Detail: rec.String()})
			state = StateInvoke

		case StateExtractFailed:
			out.Answer = Fold(tool.Name, "", UnableToUseTool)
			out.Steps = append(out.Steps, Step{State: state, Tool: tool.Name})
			state = StateAccept

		case StateInvoke:
			result, err := tool.Invoke(ctx, args)
			rendered := formatResult(result)
			if err != nil {
				logger.Warn("tool invocation failed", zap.String("tool", tool.Name), zap.Error(err))
				rendered = UnableToUseTool
			}
			out.Calls = append(out.Calls, Call{Tool: tool.Name, Args: args.String(), Result: rendered})
			out.Steps = append(out.Steps, Step{State: state, Tool: tool.Name, Detail: rendered})
			switch {
			case err != nil:
				out.Answer = Fold(tool.Name, args.String(), UnableToUseTool)
				state = StateAccept
			case tool.ReturnDirect:
				out.Answer = rendered
				state = StateReturnDirect
			default:
				toolContext = append(toolContext, Fold(tool.Name, args.String(), rendered))
				state = StateRequery
			}

		case StateRequery:
			remaining--
			out.Requeries++
			out.Steps = append(out.Steps, Step{State: state, Detail: fmt.Sprintf("remaining=%d", remaining)})
			next, err := d.generator.Generate(ctx, strings.Join(toolContext, "\n")+"\n"+prompt)
			if err != nil {
				return out, fmt.Errorf("requery: %w", err)
			}
			out.Answer = next
			state = StateGenerated

		case StateReturnDirect, StateAccept:
			out.Steps = append(out.Steps, Step{State: state})
			logger.Debug("tool loop finished",
				zap.String("state", string(state)),
				zap.Int("steps", len(out.Steps)),
				zap.Int("requeries", out.Requeries),
			)
			return out, nil
		}
	}
}

func isBindingFailure(err error) bool {
	var verr *extract.ValidationError
	return errors.As(err, &verr) || errors.Is(err, extract.ErrUnsupportedType)
}

func selectionPrompt(r *Registry, query string) string {
	var sb strings.Builder
	sb.WriteString("Select the one tool that can answer the query. Reply with the tool name only.\nTools:\n")
	for _, t := range r.Tools() {
		sb.WriteString("- ")
		sb.WriteString(t.Name)
		if t.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(t.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\nTool:")
	return sb.String()
}

// toolName reduces a selection completion to a bare candidate name.
func toolName(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
	return strings.Trim(line, " \t\"'`.,:;!()[]*")
}

func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case fmt.Stringer:
		return r.String()
	}
	return fmt.Sprint(v)
}
