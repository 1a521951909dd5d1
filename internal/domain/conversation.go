package domain

import "strings"

// Role tags the speaker of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered, append-only sequence of turns.
type Conversation []Turn

// Append returns the conversation extended with a new turn.
func (c Conversation) Append(role Role, content string) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, Turn{Role: role, Content: content})
}

// Split separates the most recent user turn, which becomes the active query,
// from every other turn. Without a user turn both results are empty.
func (c Conversation) Split() (query string, history Conversation) {
	last := -1
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return "", nil
	}
	history = make(Conversation, 0, len(c)-1)
	history = append(history, c[:last]...)
	history = append(history, c[last+1:]...)
	return c[last].Content, history
}

// String renders the turns as "role: content" lines.
func (c Conversation) String() string {
	lines := make([]string, 0, len(c))
	for _, t := range c {
		lines = append(lines, string(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// ParseRole maps loosely written role names onto the canonical roles.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, true
	case "user", "human":
		return RoleUser, true
	case "assistant", "agent", "ai", "bot":
		return RoleAssistant, true
	}
	return "", false
}
