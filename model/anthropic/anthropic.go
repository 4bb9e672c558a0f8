// Package anthropic provides a model wrapper for the Anthropic Messages API,
// used when a registry entry names provider "anthropic" instead of routing
// through OpenRouter.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/model"
)

// DefaultBaseURL is the Anthropic API root used when Options.BaseURL is empty.
const DefaultBaseURL = "https://api.anthropic.com/"

// Options configures the Anthropic model adapter (max tokens, endpoint,
// timeout). Extend via functional options to preserve stability.
type Options struct {
	MaxTokens  int64
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model wraps the Anthropic Messages API behind the model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		MaxTokens: 4096,
		Timeout:   120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	clientOpts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// Complete implements model.Model. System messages are lifted into the
// request's system blocks; the rest are sent in order.
func (m *Model) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	if req.APIKey == "" {
		return model.Response{}, model.ErrNoCredential
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(DirectModelID(req.Model)),
		Messages:    buildMessages(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system := extractSystem(req.Messages); len(system) > 0 {
		params.System = system
	}

	resp, err := m.client.Messages.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		return model.Response{}, translateError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return model.Response{
		ID:           resp.ID,
		Text:         text.String(),
		FinishReason: string(resp.StopReason),
		Usage: &model.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// DirectModelID maps an OpenRouter style id ("anthropic/claude-sonnet-4.5")
// onto the Anthropic API alias ("claude-sonnet-4-5"). Plain ids pass through.
func DirectModelID(id string) string {
	trimmed, ok := strings.CutPrefix(id, "anthropic/")
	if !ok {
		return id
	}
	return strings.ReplaceAll(trimmed, ".", "-")
}

// buildMessages converts non-system history entries to Anthropic messages.
func buildMessages(history []core.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return messages
}

// extractSystem collects system message blocks.
func extractSystem(history []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range history {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return blocks
}

func translateError(err error) error {
	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return fmt.Errorf("anthropic request failed: %w", err)
	}
	body := strings.TrimSpace(model.ErrorBody(apierr.Response))
	if body == "" {
		body = apierr.RawJSON()
	}
	if body == "" {
		body = http.StatusText(apierr.StatusCode)
	}
	return &model.StatusError{StatusCode: apierr.StatusCode, Body: body}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	base := m.opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return model.Info{Provider: core.ProviderAnthropic, BaseURL: base}
}
