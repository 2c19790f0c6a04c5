package types

import "strings"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents one turn of dialogue: a role and an ordered sequence
// of typed content segments. Messages are immutable once constructed;
// helper methods return copies.
type Message struct {
	Role    Role     `json:"role"`
	Content Segments `json:"content"`
}

// NewMessage creates a message with the given role and a single text segment.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Content: Segments{Text{Text: text}}}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, text)
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, text)
}

// WithSegments returns a copy of the message with the given content segments.
func (m Message) WithSegments(segs ...ContentSegment) Message {
	m.Content = Segments(segs)
	return m
}

// TextContent concatenates the text of all Text segments in order.
// ToolUse and ToolResult segments are skipped.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, seg := range m.Content {
		if t, ok := seg.(Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
