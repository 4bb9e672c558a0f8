package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/fanout"
	"github.com/hupe1980/trichat/model"
	"github.com/hupe1980/trichat/session"
)

type fixture struct {
	srv   *Server
	store *session.InMemoryStore
	mock  *model.MockModel
	key   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := core.DefaultRegistry()
	f := &fixture{
		store: session.NewInMemoryStore(reg),
		mock:  model.NewMockModel(),
		key:   "sk-test",
	}
	coord := fanout.New(reg, map[string]model.Model{core.ProviderOpenRouter: f.mock})
	f.srv = New(f.store, coord, func(o *Options) {
		o.Credential = func(string) string { return f.key }
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type, authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestChat_DefaultSessionAllSucceed(t *testing.T) {
	f := newFixture(t)
	f.mock.AddResponse("openai/gpt-5.2", "hello from gpt")

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"  hi  "}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assertCORS(t, rec)
	body := decode(t, rec)
	assert.Equal(t, "default", body["sessionId"])
	assert.Equal(t, "hi", body["input"])

	outputs := body["outputs"].(map[string]any)
	require.Len(t, outputs, 3)
	gpt := outputs["gpt5_2"].(map[string]any)
	assert.Equal(t, "openai/gpt-5.2", gpt["model"])
	assert.Equal(t, "hello from gpt", gpt["reply"])

	sess, ok := f.store.Get("default")
	require.True(t, ok)
	h, _ := sess.History("gpt5_2")
	assert.Equal(t, core.History{
		core.NewSystemMessage(core.DefaultSystemPrompt),
		core.NewUserMessage("hi"),
		core.NewAssistantMessage("hello from gpt"),
	}, h)
}

func TestChat_OutputsInRegistryOrderPrettyPrinted(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"hi"}`)

	raw := rec.Body.String()
	assert.True(t, strings.HasPrefix(raw, "{\n  \"sessionId\""), raw)
	i1 := strings.Index(raw, `"gpt5_2"`)
	i2 := strings.Index(raw, `"gemini3pro"`)
	i3 := strings.Index(raw, `"claude_sonnet_4_5"`)
	assert.True(t, i1 < i2 && i2 < i3, raw)
}

func TestChat_PartialFailureStill200(t *testing.T) {
	f := newFixture(t)
	f.mock.AddFailure("anthropic/claude-sonnet-4.5", &model.StatusError{StatusCode: 500, Body: "oops"})

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"hi","sessionId":"s1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	outputs := decode(t, rec)["outputs"].(map[string]any)
	claude := outputs["claude_sonnet_4_5"].(map[string]any)
	assert.Equal(t, "upstream HTTP 500: oops", claude["error"])
	_, hasReply := claude["reply"]
	assert.False(t, hasReply)

	sess, _ := f.store.Get("s1")
	assert.Equal(t, 1, sess.Len("claude_sonnet_4_5"))
	assert.Equal(t, 3, sess.Len("gpt5_2"))
	assert.Equal(t, 3, sess.Len("gemini3pro"))
}

func TestChat_SystemPromptFirstCallWins(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/chat", `{"message":"one","sessionId":"p","systemPrompt":"be a pirate"}`)
	f.do(t, http.MethodPost, "/chat", `{"message":"two","sessionId":"p","systemPrompt":"be a robot"}`)

	sess, _ := f.store.Get("p")
	assert.Equal(t, "be a pirate", sess.SystemPrompt)
	h, _ := sess.History("gemini3pro")
	assert.Len(t, h, 5)
	assert.Equal(t, "be a pirate", h[0].Content)
}

func TestChat_BadInputMutatesNothing(t *testing.T) {
	for name, body := range map[string]string{
		"malformed json":   `{"message":`,
		"trailing garbage": `{"message":"hi"} x`,
		"empty message":    `{"message":""}`,
		"blank message":    `{"message":"   \n\t"}`,
		"missing message":  `{"sessionId":"x"}`,
		"not an object":    `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(t, http.MethodPost, "/chat", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assertCORS(t, rec)
			assert.NotEmpty(t, decode(t, rec)["error"])
			assert.Equal(t, 0, f.store.Len())
			assert.Empty(t, f.mock.Calls())
		})
	}
}

func TestChat_ErrorMessages(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/chat", `nope`)
	assert.Equal(t, "Invalid JSON body", decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/chat", `{"message":" "}`)
	assert.Equal(t, "Missing 'message' in request body", decode(t, rec)["error"])
}

func TestChat_BodyTooLarge(t *testing.T) {
	f := newFixture(t)
	f.srv.opts.MaxBodyBytes = 16

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"`+strings.Repeat("a", 64)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_MissingCredential(t *testing.T) {
	f := newFixture(t)
	f.key = ""

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assertCORS(t, rec)
	assert.Contains(t, decode(t, rec)["error"], "OPENROUTER_API_KEY")
	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.mock.Calls())
}

func TestChat_CredentialPassedToUpstream(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/chat", `{"message":"hi"}`)

	calls := f.mock.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, "sk-test", c.APIKey)
	}
}

func TestChat_NonStringScalars(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/chat", `{"message":42,"sessionId":7,"systemPrompt":false}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "42", body["input"])
	assert.Equal(t, "7", body["sessionId"])
	sess, ok := f.store.Get("7")
	require.True(t, ok)
	assert.Equal(t, core.DefaultSystemPrompt, sess.SystemPrompt)
}

func TestChat_FalsySystemPromptIsAbsent(t *testing.T) {
	for i, prompt := range []string{`false`, `0`, `0.0`, `-0`, `0e0`, `null`, `""`} {
		f := newFixture(t)
		id := fmt.Sprintf("falsy-%d", i)

		rec := f.do(t, http.MethodPost, "/chat", fmt.Sprintf(`{"message":"hi","sessionId":%q,"systemPrompt":%s}`, id, prompt))

		require.Equal(t, http.StatusOK, rec.Code, prompt)
		sess, ok := f.store.Get(id)
		require.True(t, ok, prompt)
		assert.Equal(t, core.DefaultSystemPrompt, sess.SystemPrompt, prompt)
	}
}

func TestChat_NonZeroSystemPromptScalarsKept(t *testing.T) {
	for prompt, want := range map[string]string{`"0"`: "0", `1.5`: "1.5", `true`: "true"} {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/chat", `{"message":"hi","sessionId":"p","systemPrompt":`+prompt+`}`)

		require.Equal(t, http.StatusOK, rec.Code, prompt)
		sess, _ := f.store.Get("p")
		assert.Equal(t, want, sess.SystemPrompt, prompt)
	}
}

// An explicit empty sessionId shares the "default" session rather than
// opening a session keyed by the empty string.
func TestChat_EmptySessionIDUsesDefault(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/chat", `{"message":"hi","sessionId":""}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.DefaultSessionID, decode(t, rec)["sessionId"])
	_, ok := f.store.Get("")
	assert.False(t, ok)
	_, ok = f.store.Get(core.DefaultSessionID)
	assert.True(t, ok)
	assert.Equal(t, 1, f.store.Len())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, DefaultServiceName, body["service"])
}

func TestOptionsAnyPath(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/chat", "/health", "/whatever"} {
		rec := f.do(t, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assertCORS(t, rec)
		assert.Equal(t, map[string]any{"ok": true}, decode(t, rec))
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/chat"},
		{http.MethodPost, "/health"},
		{http.MethodPost, "/"},
		{http.MethodDelete, "/chat"},
	} {
		rec := f.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, tc)
		assertCORS(t, rec)
		assert.Equal(t, "Not Found", decode(t, rec)["error"])
	}
}
