package core

// Role identifies the author of a Message within a conversation history.
type Role string

const (
	// RoleSystem marks the seeded instruction message at the head of a history.
	RoleSystem Role = "system"
	// RoleUser marks a message supplied by the caller.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by an upstream model.
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. It should be treated as immutable
// once appended to a history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// History is an ordered conversation for one model. A well-formed history
// starts with exactly one system message.
type History []Message

// Clone returns an independent copy of the history.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}
