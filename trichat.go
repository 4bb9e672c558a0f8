// Package trichat provides a high-level façade over the session store, the
// upstream model adapters and the fan-out coordinator, enabling a relay that
// sends one user message to several language models and returns every
// reply together. Most applications interact with this package by:
//  1. Loading a config.Config (config.Load)
//  2. Creating a Relay via New (optionally overriding the store or adapters)
//  3. Serving HTTP (Serve / Handler) or running turns directly (Turn)
//
// All defaults are in-memory and safe for local development and testing.
package trichat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hupe1980/trichat/config"
	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/fanout"
	"github.com/hupe1980/trichat/logging"
	"github.com/hupe1980/trichat/model"
	"github.com/hupe1980/trichat/model/anthropic"
	"github.com/hupe1980/trichat/model/gemini"
	"github.com/hupe1980/trichat/model/openai"
	"github.com/hupe1980/trichat/server"
	"github.com/hupe1980/trichat/session"
)

// ErrMissingCredential is returned by Turn when a provider has no API key.
var ErrMissingCredential = errors.New("missing upstream credential")

// ErrEmptyMessage is returned by Turn for a blank message.
var ErrEmptyMessage = errors.New("message must not be empty")

// Options configures the Relay instance.
type Options struct {
	// SessionStore (defaults to session.InMemoryStore if not provided)
	SessionStore core.SessionStore

	// Models maps provider name to adapter. Providers without an entry get
	// the adapter built from the config.
	Models map[string]model.Model

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Relay is the high-level façade aggregating store, coordinator and server.
type Relay struct {
	cfg      *config.Config
	registry *core.Registry
	store    core.SessionStore
	coord    *fanout.Coordinator
	server   *server.Server
	models   map[string]model.Model
}

// New creates a Relay from cfg with optional overrides.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Relay, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	opts := Options{
		Models: map[string]model.Model{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore(registry, func(o *session.Options) {
			o.DefaultSystemPrompt = cfg.Session.DefaultSystemPrompt
		})
	}

	models := make(map[string]model.Model, len(registry.Providers()))
	for _, p := range registry.Providers() {
		if m, ok := opts.Models[p]; ok {
			models[p] = m
			continue
		}
		m, err := newModel(cfg, p)
		if err != nil {
			return nil, err
		}
		models[p] = m
	}

	coord := fanout.New(registry, models, func(o *fanout.Options) {
		o.Temperature = cfg.Upstream.Temperature
		o.Logger = opts.Logger
	})

	srv := server.New(opts.SessionStore, coord, func(o *server.Options) {
		o.ServiceName = cfg.Server.ServiceName
		o.MaxBodyBytes = cfg.Server.MaxBodyBytes
		o.Credential = cfg.Credential
		o.CredentialEnv = cfg.CredentialEnv
		o.Logger = opts.Logger
	})

	return &Relay{
		cfg:      cfg,
		registry: registry,
		store:    opts.SessionStore,
		coord:    coord,
		server:   srv,
		models:   models,
	}, nil
}

func newModel(cfg *config.Config, provider string) (model.Model, error) {
	switch provider {
	case core.ProviderOpenRouter:
		return openai.NewModel(func(o *openai.Options) {
			o.BaseURL = cfg.Upstream.BaseURL
			o.Referer = cfg.Upstream.Referer
			o.Title = cfg.Upstream.Title
			o.Timeout = cfg.Upstream.Timeout.Duration
		}), nil
	case core.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.BaseURL = cfg.Anthropic.BaseURL
			o.MaxTokens = cfg.Anthropic.MaxTokens
			o.Timeout = cfg.Upstream.Timeout.Duration
		}), nil
	case core.ProviderGoogle:
		return gemini.NewModel(func(o *gemini.Options) {
			o.BaseURL = cfg.Google.BaseURL
			o.Timeout = cfg.Upstream.Timeout.Duration
		}), nil
	default:
		return nil, fmt.Errorf("no adapter for provider %q", provider)
	}
}

// Registry returns the model registry.
func (r *Relay) Registry() *core.Registry { return r.registry }

// ModelInfo describes the adapter serving provider.
func (r *Relay) ModelInfo(provider string) (model.Info, bool) {
	m, ok := r.models[provider]
	if !ok {
		return model.Info{}, false
	}
	return m.Info(), true
}

// Store returns the session store.
func (r *Relay) Store() core.SessionStore { return r.store }

// Handler returns the HTTP handler serving the relay endpoints.
func (r *Relay) Handler() http.Handler { return r.server.Handler() }

// Serve listens on the configured address until ctx is cancelled.
func (r *Relay) Serve(ctx context.Context) error {
	return r.server.ListenAndServe(ctx, r.cfg.Server.Addr)
}

// Turn runs one turn without going through HTTP. It applies the same rules
// as POST /chat: blank messages and missing credentials are rejected before
// any session is created or mutated.
func (r *Relay) Turn(ctx context.Context, sessionID, systemPrompt, message string) (core.Outputs, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	creds := make(fanout.Credentials)
	for _, p := range r.registry.Providers() {
		key := r.cfg.Credential(p)
		if key == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, r.cfg.CredentialEnv(p))
		}
		creds[p] = key
	}
	if sessionID == "" {
		sessionID = core.DefaultSessionID
	}
	sess, _, err := r.store.Resolve(sessionID, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return r.coord.HandleTurn(ctx, sess, message, creds), nil
}
