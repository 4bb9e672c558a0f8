package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultSessionID is used when a caller omits a session id.
	DefaultSessionID = "default"

	// DefaultSystemPrompt seeds new sessions when no prompt is supplied.
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Session holds one conversation History per registered model, all seeded
// with the same system prompt. It is safe for concurrent access.
//
// Contract:
//   - every registry key has exactly one history for the session lifetime
//   - History returns a copy
//   - BeginTurn serializes turns on the same session; histories of distinct
//     models may be mutated concurrently inside one turn
type Session struct {
	ID           string
	SystemPrompt string
	Created      time.Time

	keys      []string
	histories map[string]History
	mu        sync.RWMutex
	turn      chan struct{} // capacity 1; holding the token owns the turn
}

// NewSession creates a session seeded with systemPrompt (or
// DefaultSystemPrompt when empty) for every model in reg.
func NewSession(id, systemPrompt string, reg *Registry) *Session {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	s := &Session{
		ID:           id,
		SystemPrompt: systemPrompt,
		Created:      time.Now(),
		keys:         reg.Keys(),
		turn:         make(chan struct{}, 1),
		histories:    make(map[string]History, reg.Len()),
	}
	for _, k := range s.keys {
		s.histories[k] = History{NewSystemMessage(systemPrompt)}
	}
	return s
}

// Keys returns the model keys tracked by this session in registry order.
func (s *Session) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// BeginTurn acquires the session's turn lock and returns the release func.
// It gives up with ctx.Err() if ctx ends first; a ctx that is already done
// never acquires the lock.
func (s *Session) BeginTurn(ctx context.Context) (end func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.turn <- struct{}{}:
		return func() { <-s.turn }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// History returns a copy of the history for key.
func (s *Session) History(key string) (History, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[key]
	if !ok {
		return nil, false
	}
	return h.Clone(), true
}

// Len returns the number of messages in the history for key (0 if unknown).
func (s *Session) Len(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories[key])
}

// Append adds msg to the history for key and returns the history length
// before the append, suitable for a later Truncate.
func (s *Session) Append(key string, msg Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModelKey, key)
	}
	s.histories[key] = append(h, msg)
	return len(h), nil
}

// Truncate shrinks the history for key back to n messages. The leading
// system message is never removed.
func (s *Session) Truncate(key string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModelKey, key)
	}
	if n < 1 {
		n = 1
	}
	if n >= len(h) {
		return nil
	}
	clear(h[n:])
	s.histories[key] = h[:n]
	return nil
}

// SessionStore resolves sessions by caller-chosen id.
//
// Resolve returns the existing session for id unchanged, or creates one
// seeded with systemPrompt. A prompt passed for an id that already exists is
// ignored: the first prompt supplied for an id is permanent. The boolean
// reports whether the call created the session.
type SessionStore interface {
	Resolve(id, systemPrompt string) (*Session, bool, error)
	Get(id string) (*Session, bool)
	Len() int
}
