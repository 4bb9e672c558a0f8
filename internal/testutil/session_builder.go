package testutil

import (
	"github.com/hupe1980/trichat/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").Prompt("be brief").Turn("hi", "hello").Build()
type SessionBuilder struct {
	id       string
	prompt   string
	registry *core.Registry
	turns    []turn
}

type turn struct {
	keys      []string // nil means every key
	user      string
	assistant string
}

// NewSessionBuilder creates a builder over core.DefaultRegistry.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, registry: core.DefaultRegistry()}
}

// Registry overrides the registry the session is seeded from (chainable).
func (b *SessionBuilder) Registry(r *core.Registry) *SessionBuilder { b.registry = r; return b }

// Prompt sets the system prompt (chainable).
func (b *SessionBuilder) Prompt(p string) *SessionBuilder { b.prompt = p; return b }

// Turn records a completed user/assistant exchange on every model (chainable).
func (b *SessionBuilder) Turn(user, assistant string) *SessionBuilder {
	b.turns = append(b.turns, turn{user: user, assistant: assistant})
	return b
}

// TurnFor records a completed exchange only on the given model keys (chainable).
func (b *SessionBuilder) TurnFor(keys []string, user, assistant string) *SessionBuilder {
	b.turns = append(b.turns, turn{keys: keys, user: user, assistant: assistant})
	return b
}

// Build returns a *core.Session with the recorded turns applied in order.
// It panics on unknown keys since builders are only used from tests.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id, b.prompt, b.registry)
	for _, t := range b.turns {
		keys := t.keys
		if keys == nil {
			keys = s.Keys()
		}
		for _, k := range keys {
			mustAppend(s, k, core.NewUserMessage(t.user))
			mustAppend(s, k, core.NewAssistantMessage(t.assistant))
		}
	}
	return s
}

func mustAppend(s *core.Session, key string, msg core.Message) {
	if _, err := s.Append(key, msg); err != nil {
		panic(err)
	}
}
