package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/model"
)

var _ model.Model = (*Model)(nil)

type capturedRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
}

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.Referer = "https://example.test"
		o.Title = "trichat-test"
	})
}

func TestModel_Complete_Success(t *testing.T) {
	var got capturedRequest
	var headers http.Header
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1",
			"object": "chat.completion",
			"created": 1,
			"model": "openai/gpt-5.2",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	})

	resp, err := m.Complete(context.Background(), model.Request{
		APIKey: "sk-test",
		Model:  "openai/gpt-5.2",
		Messages: []core.Message{
			core.NewSystemMessage("sys"),
			core.NewUserMessage("hi"),
		},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.EqualValues(t, 5, resp.Usage.TotalTokens)

	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "https://example.test", headers.Get("HTTP-Referer"))
	assert.Equal(t, "trichat-test", headers.Get("X-Title"))
	assert.Equal(t, "openai/gpt-5.2", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, []core.Message{core.NewSystemMessage("sys"), core.NewUserMessage("hi")}, got.Messages)
}

func TestModel_Complete_NoChoicesIsEmptyReply(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-2","object":"chat.completion","created":1,"model":"x","choices":[]}`))
	})

	resp, err := m.Complete(context.Background(), model.Request{APIKey: "k", Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Text)
}

func TestModel_Complete_StatusErrorNoRetry(t *testing.T) {
	var hits int32
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","code":500}}`))
	})

	_, err := m.Complete(context.Background(), model.Request{APIKey: "k", Model: "x"})
	require.Error(t, err)

	var se *model.StatusError
	require.True(t, errors.As(err, &se), "got %T: %v", err, err)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, `upstream HTTP 500: {"error":{"message":"upstream exploded","code":500}}`, err.Error())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "adapter must not retry")
}

func TestModel_Complete_StatusErrorKeepsRawBody(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{"plain text gateway error", http.StatusBadGateway, "text/plain", "Bad Gateway: provider timed out"},
		{"json without error wrapper", http.StatusPaymentRequired, "application/json", `{"detail":"quota exceeded for key"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := m.Complete(context.Background(), model.Request{APIKey: "k", Model: "x"})

			var se *model.StatusError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.body, se.Body)
		})
	}
}

func TestModel_Complete_MissingCredential(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := m.Complete(context.Background(), model.Request{Model: "x"})
	assert.ErrorIs(t, err, model.ErrNoCredential)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://openrouter.ai/api/v1/", normalizeBaseURL("https://openrouter.ai/api/v1"))
	assert.Equal(t, "http://x/", normalizeBaseURL("http://x/"))
}
