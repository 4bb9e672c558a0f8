package core

import "fmt"

// ProviderOpenRouter is the default provider: the unified OpenAI-compatible
// upstream that addresses every registered model by its fully-qualified id.
const ProviderOpenRouter = "openrouter"

// ProviderAnthropic routes a model directly to the Anthropic Messages API.
const ProviderAnthropic = "anthropic"

// ProviderGoogle routes a model directly to the Gemini API.
const ProviderGoogle = "google"

// ModelSpec binds a short model key (e.g. "gpt5_2") to the upstream model
// identifier and the provider that serves it.
type ModelSpec struct {
	Key      string `json:"key"`
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// DefaultModels lists the built-in registry entries in fan-out order.
var DefaultModels = []ModelSpec{
	{Key: "gpt5_2", ID: "openai/gpt-5.2", Provider: ProviderOpenRouter},
	{Key: "gemini3pro", ID: "google/gemini-3-pro-preview", Provider: ProviderOpenRouter},
	{Key: "claude_sonnet_4_5", ID: "anthropic/claude-sonnet-4.5", Provider: ProviderOpenRouter},
}

// Registry is an ordered, read-only set of ModelSpecs. It is built once at
// process start and shared by every session.
type Registry struct {
	specs []ModelSpec
}

// NewRegistry validates specs and builds a Registry preserving their order.
// An empty Provider defaults to ProviderOpenRouter.
func NewRegistry(specs ...ModelSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{specs: make([]ModelSpec, 0, len(specs))}
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Key == "" || s.ID == "" {
			return nil, fmt.Errorf("%w: entry %d needs both key and id", ErrInvalidModelSpec, i)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModelKey, s.Key)
		}
		if s.Provider == "" {
			s.Provider = ProviderOpenRouter
		}
		seen[s.Key] = true
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// DefaultRegistry returns a Registry over DefaultModels.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultModels...)
	if err != nil {
		panic(err) // static table
	}
	return r
}

// Len returns the number of registered models.
func (r *Registry) Len() int { return len(r.specs) }

// Specs returns a copy of the entries in registry order.
func (r *Registry) Specs() []ModelSpec {
	out := make([]ModelSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Keys returns the model keys in registry order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.specs))
	for i, s := range r.specs {
		keys[i] = s.Key
	}
	return keys
}

// Providers returns the distinct providers in first-seen order.
func (r *Registry) Providers() []string {
	seen := make(map[string]bool, 2)
	var out []string
	for _, s := range r.specs {
		if seen[s.Provider] {
			continue
		}
		seen[s.Provider] = true
		out = append(out, s.Provider)
	}
	return out
}
