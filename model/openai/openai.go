// Package openai provides an implementation of model.Model on top of the
// OpenAI Chat Completions API as exposed by OpenRouter (or any other
// OpenAI-compatible gateway). One Complete call is one non-streaming POST to
// <base>/chat/completions; SDK retries are disabled.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/model"
)

const (
	// DefaultBaseURL is OpenRouter's OpenAI-compatible API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultReferer is sent as HTTP-Referer for OpenRouter app attribution.
	DefaultReferer = "http://localhost"

	// DefaultTitle is sent as X-Title for OpenRouter app attribution.
	DefaultTitle = "workers-3model-chat"

	// DefaultTimeout bounds a single upstream exchange.
	DefaultTimeout = 120 * time.Second
)

// Options configure the OpenRouter adapter.
type Options struct {
	BaseURL    string
	Referer    string
	Title      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model wraps the Chat Completions API behind the model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new adapter with its own SDK client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	client := openai.NewClient(
		option.WithBaseURL(normalizeBaseURL(opts.BaseURL)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
		option.WithHeader("HTTP-Referer", opts.Referer),
		option.WithHeader("X-Title", opts.Title),
	)
	return &Model{client: &client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		BaseURL: DefaultBaseURL,
		Referer: DefaultReferer,
		Title:   DefaultTitle,
		Timeout: DefaultTimeout,
	}
}

// normalizeBaseURL ensures relative endpoint paths resolve under the base.
func normalizeBaseURL(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	if req.APIKey == "" {
		return model.Response{}, model.ErrNoCredential
	}
	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    buildMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		return model.Response{}, translateError(err)
	}

	out := model.Response{ID: resp.ID}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &model.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	// An answer without choices is treated as an empty reply.
	if len(resp.Choices) == 0 {
		return out, nil
	}
	out.Text = resp.Choices[0].Message.Content
	out.FinishReason = resp.Choices[0].FinishReason
	return out, nil
}

// buildMessages converts a history into chat message params.
func buildMessages(history []core.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}

// translateError maps SDK API errors onto model.StatusError carrying the
// status code and the raw response body; transport errors are wrapped as-is.
func translateError(err error) error {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return fmt.Errorf("openrouter request failed: %w", err)
	}
	body := strings.TrimSpace(model.ErrorBody(apierr.Response))
	if body == "" {
		body = apierr.RawJSON()
	}
	if body == "" {
		body = apierr.Message
	}
	if body == "" {
		body = http.StatusText(apierr.StatusCode)
	}
	return &model.StatusError{StatusCode: apierr.StatusCode, Body: body}
}

// Info returns metadata describing this adapter.
func (m *Model) Info() model.Info {
	return model.Info{Provider: core.ProviderOpenRouter, BaseURL: m.opts.BaseURL}
}
