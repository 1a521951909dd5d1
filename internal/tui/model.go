package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/service"
)

// ChatPort is the TUI-facing subset of the engine.
type ChatPort interface {
	Chat(ctx context.Context, conv domain.Conversation, supplied string) (service.Answer, error)
}

// PoolReloadedMsg tells the model the document pool was rebuilt.
type PoolReloadedMsg struct {
	Summary string
}

type answerMsg struct {
	answer service.Answer
	err    error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	engine      ChatPort
	input       textinput.Model
	viewport    viewport.Model
	markdown    *glamour.TermRenderer
	conv        domain.Conversation
	sources     []domain.ScoredDocument
	steps       int
	summary     string
	status      string
	ready       bool
	busy        bool
	showSources bool
}

// New creates a new chat model. summary describes the loaded documents.
func New(engine ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:      engine,
		input:       ti,
		viewport:    vp,
		markdown:    newMarkdown(80),
		summary:     summary,
		status:      "Ready. Ctrl+S toggles sources, Ctrl+L clears the chat.",
		showSources: true,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Conversation returns the turns exchanged so far.
func (m Model) Conversation() domain.Conversation { return m.conv }

// Update handles key, window and engine events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.markdown = newMarkdown(m.viewport.Width)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		m.conv = m.conv.Append(domain.RoleAssistant, msg.answer.Text)
		m.sources = msg.answer.Sources
		m.steps = len(msg.answer.Calls)
		m.status = fmt.Sprintf("%d sources, %d tool calls", len(m.sources), m.steps)
		m.refresh()
		return m, nil
	case PoolReloadedMsg:
		m.summary = msg.Summary
		m.status = "Documents reloaded."
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyCtrlS:
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
		case tea.KeyCtrlL:
			m.conv = nil
			m.sources = nil
			m.status = "Conversation cleared."
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.conv = m.conv.Append(domain.RoleUser, q)
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(m.conv)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(conv domain.Conversation) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ans, err := engine.Chat(context.Background(), conv, "")
		return answerMsg{answer: ans, err: err}
	}
}

// View renders the header, transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Teapot")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.conv) == 0 {
		return "No messages yet."
	}
	var sb strings.Builder
	for _, t := range m.conv {
		style := userStyle
		if t.Role == domain.RoleAssistant {
			style = assistantStyle
		}
		sb.WriteString(style.Render(string(t.Role) + ":"))
		if t.Role == domain.RoleAssistant {
			sb.WriteString("\n")
			sb.WriteString(m.renderMarkdown(t.Content))
		} else {
			sb.WriteString(" ")
			sb.WriteString(t.Content)
		}
		sb.WriteString("\n")
	}
	if m.showSources && len(m.sources) > 0 {
		query, _ := m.conv.Split()
		sb.WriteString("\n")
		for i, s := range m.sources {
			title := fmt.Sprintf("[%d] %s  score=%.3f", i+1, s.Document.Metadata.Source, s.Score)
			sb.WriteString(sourceTitleStyle.Render(title))
			sb.WriteString("\n")
			sb.WriteString(highlightBestSentence(s.Document.Text, query))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// newMarkdown returns nil when the renderer cannot be built; answers are then
// shown verbatim.
func newMarkdown(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, width-4)),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	sourceTitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence of text sharing the most words
// with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
