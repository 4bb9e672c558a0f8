package session

import (
	"sync"

	"github.com/hupe1980/trichat/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map for the lifetime of the process. It is safe for concurrent
// access: two requests racing to create the same new id observe a single
// session. Sessions are returned by reference since turns mutate them in
// place; Session itself guards its histories.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	registry *core.Registry
	prompt   string
}

// Options configures an InMemoryStore.
type Options struct {
	// DefaultSystemPrompt seeds sessions created without a prompt.
	DefaultSystemPrompt string
}

// NewInMemoryStore constructs an empty store seeding sessions from registry.
func NewInMemoryStore(registry *core.Registry, optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{DefaultSystemPrompt: core.DefaultSystemPrompt}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		registry: registry,
		prompt:   opts.DefaultSystemPrompt,
	}
}

// Resolve returns the session for id, creating it lazily. systemPrompt is
// only used on creation.
func (s *InMemoryStore) Resolve(id, systemPrompt string) (*core.Session, bool, error) {
	if id == "" {
		id = core.DefaultSessionID
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// re-check: another request may have created it meanwhile
	if sess, ok := s.sessions[id]; ok {
		return sess, false, nil
	}
	return s.createSessionLocked(id, systemPrompt), true, nil
}

// Get returns an existing session without creating one.
func (s *InMemoryStore) Get(id string) (*core.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// createSessionLocked allocates and stores a new session; caller must hold
// the write lock.
func (s *InMemoryStore) createSessionLocked(id, systemPrompt string) *core.Session {
	if systemPrompt == "" {
		systemPrompt = s.prompt
	}
	sess := core.NewSession(id, systemPrompt, s.registry)
	s.sessions[id] = sess
	return sess
}
