package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hupe1980/trichat/core"
)

// Request is one upstream exchange: a credential, a fully-qualified model id
// and the ordered history to send as context.
type Request struct {
	APIKey      string         `json:"-"`
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is the extracted reply of a completed exchange.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Model is the upstream call adapter contract.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoCredential is returned when a Request carries no API key.
var ErrNoCredential = errors.New("missing upstream credential")

// StatusError reports a non-2xx upstream answer.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Body)
}

// ErrorBody returns the raw body of a failed upstream response and restores
// it for later readers. It returns "" when there is nothing to read.
func ErrorBody(res *http.Response) string {
	if res == nil || res.Body == nil {
		return ""
	}
	b, err := io.ReadAll(res.Body)
	res.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	return string(b)
}

// MockModel is a scripted in-memory Model for tests. Replies and failures are
// keyed by the upstream model id; unscripted ids echo the last message.
// It is safe for concurrent use.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	failures  map[string]error
	calls     []Request
	hook      func(Request)
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{
		info:      Info{Provider: "mock"},
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

// AddResponse registers a canned reply for a model id.
func (m *MockModel) AddResponse(modelID, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[modelID] = reply
}

// AddFailure makes every call for modelID fail with err.
func (m *MockModel) AddFailure(modelID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[modelID] = err
}

// ClearFailure removes a failure registered with AddFailure.
func (m *MockModel) ClearFailure(modelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, modelID)
}

// OnCall installs a hook run (outside the lock) before each call resolves.
func (m *MockModel) OnCall(fn func(Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// Calls returns the recorded requests in arrival order.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	req.Messages = append([]core.Message(nil), req.Messages...)
	m.calls = append(m.calls, req)
	hook := m.hook
	reply, scripted := m.responses[req.Model]
	failure := m.failures[req.Model]
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if failure != nil {
		return Response{}, failure
	}
	if !scripted {
		var last string
		if n := len(req.Messages); n > 0 {
			last = req.Messages[n-1].Content
		}
		reply = fmt.Sprintf("Mock response to: %s", last)
	}
	return Response{Text: reply, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
