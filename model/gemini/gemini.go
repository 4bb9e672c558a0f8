// Package gemini provides a model.Model backed by the Google Gemini API,
// used when a registry entry names provider "google" instead of routing
// through OpenRouter.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/model"
)

// DefaultBaseURL is the Gemini API root used when Options.BaseURL is empty.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

// Options configures the Gemini adapter.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model wraps the genai SDK behind the model.Model interface. The SDK binds
// the API key at client construction, so one client is kept per key.
type Model struct {
	opts Options

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewModel creates a new Gemini adapter.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{Timeout: 120 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Model{opts: opts, clients: make(map[string]*genai.Client)}
}

func (m *Model) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[apiKey]; ok {
		return c, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: m.opts.HTTPClient,
	}
	if m.opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: m.opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	m.clients[apiKey] = c
	return c, nil
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	if req.APIKey == "" {
		return model.Response{}, model.ErrNoCredential
	}
	c, err := m.client(ctx, req.APIKey)
	if err != nil {
		return model.Response{}, err
	}

	resp, err := c.Models.GenerateContent(ctx, DirectModelID(req.Model), buildContents(req.Messages), buildConfig(req))
	if err != nil {
		return model.Response{}, translateError(err)
	}

	out := model.Response{ID: resp.ResponseID, Text: resp.Text()}
	if len(resp.Candidates) > 0 {
		out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
			TotalTokens:      int64(u.TotalTokenCount),
		}
	}
	return out, nil
}

// DirectModelID maps an OpenRouter style id ("google/gemini-3-pro-preview")
// onto the Gemini API name ("gemini-3-pro-preview").
func DirectModelID(id string) string {
	return strings.TrimPrefix(id, "google/")
}

func buildConfig(req model.Request) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}

	var system []*genai.Part
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			system = append(system, &genai.Part{Text: msg.Content})
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}
	return config
}

// buildContents converts non-system history entries; assistant turns use
// the API's "model" role.
func buildContents(history []core.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func translateError(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return statusError(apierr)
	}
	var apierrPtr *genai.APIError
	if errors.As(err, &apierrPtr) && apierrPtr != nil {
		return statusError(*apierrPtr)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

func statusError(e genai.APIError) error {
	body := e.Message
	if body == "" {
		body = http.StatusText(e.Code)
	}
	return &model.StatusError{StatusCode: e.Code, Body: body}
}

// Info returns metadata describing this adapter.
func (m *Model) Info() model.Info {
	base := m.opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return model.Info{Provider: core.ProviderGoogle, BaseURL: base}
}
