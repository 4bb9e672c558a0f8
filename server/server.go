package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/fanout"
	"github.com/hupe1980/trichat/logging"
)

const (
	// DefaultServiceName is reported by GET /health.
	DefaultServiceName = "openrouter-3model-chat"

	// DefaultMaxBodyBytes caps POST /chat bodies.
	DefaultMaxBodyBytes = 1 << 20

	// shutdownTimeout bounds graceful shutdown in ListenAndServe.
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	ServiceName  string
	MaxBodyBytes int64

	// Credential returns the API key for a provider, read per request. An
	// empty result fails the request with 500.
	Credential func(provider string) string

	// CredentialEnv names where a provider's key is expected; used in the
	// missing-credential error message.
	CredentialEnv func(provider string) string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Server is the HTTP front of the relay.
type Server struct {
	store   core.SessionStore
	coord   *fanout.Coordinator
	opts    Options
	handler http.Handler
}

// New creates a Server over store and coord.
func New(store core.SessionStore, coord *fanout.Coordinator, optFns ...func(o *Options)) *Server {
	opts := Options{
		ServiceName:   DefaultServiceName,
		MaxBodyBytes:  DefaultMaxBodyBytes,
		Credential:    func(string) string { return "" },
		CredentialEnv: func(string) string { return "OPENROUTER_API_KEY" },
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{store: store, coord: coord, opts: opts}
	s.handler = Chain(
		RecoveryMiddleware(opts.Logger),
		RequestIDMiddleware(),
		LoggingMiddleware(opts.Logger),
		CORSMiddleware(),
	)(http.HandlerFunc(s.route))
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("Server listening", "addr", addr, "service", s.opts.ServiceName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.opts.Logger.Info("Server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodOptions:
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, healthResponse{OK: true, Service: s.opts.ServiceName})
	case r.Method == http.MethodPost && r.URL.Path == "/chat":
		s.handleChat(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	SessionID string       `json:"sessionId"`
	Input     string       `json:"input"`
	Outputs   core.Outputs `json:"outputs"`
}

// chatRequest keeps fields raw so non-string scalars are accepted as text.
type chatRequest struct {
	Message      json.RawMessage `json:"message"`
	SessionID    json.RawMessage `json:"sessionId"`
	SystemPrompt json.RawMessage `json:"systemPrompt"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	creds, missing := s.credentials()
	if missing != "" {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Missing %s (set as environment variable)", s.opts.CredentialEnv(missing)))
		return
	}

	body, err := decodeChatRequest(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	message := strings.TrimSpace(textField(body.Message))
	if message == "" {
		writeError(w, http.StatusBadRequest, "Missing 'message' in request body")
		return
	}
	sessionID := textField(body.SessionID)
	if sessionID == "" {
		sessionID = core.DefaultSessionID
	}

	sess, created, err := s.store.Resolve(sessionID, promptField(body.SystemPrompt))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if created {
		s.opts.Logger.Debug("Session created", "session", sessionID)
	}

	outputs := s.coord.HandleTurn(r.Context(), sess, message, creds)

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Input:     message,
		Outputs:   outputs,
	})
}

// credentials gathers a key for every provider in the registry. It returns
// the first provider lacking one.
func (s *Server) credentials() (fanout.Credentials, string) {
	providers := s.coord.Registry().Providers()
	creds := make(fanout.Credentials, len(providers))
	for _, p := range providers {
		key := s.opts.Credential(p)
		if key == "" {
			return nil, p
		}
		creds[p] = key
	}
	return creds, ""
}

// decodeChatRequest parses exactly one JSON value from r. Non-object values
// decode to an empty request.
func decodeChatRequest(r io.Reader) (chatRequest, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return chatRequest{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return chatRequest{}, errors.New("trailing data after JSON body")
	}
	var req chatRequest
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &req); err != nil {
			return chatRequest{}, err
		}
	}
	return req, nil
}

// textField renders a raw JSON scalar as text: strings verbatim, numbers and
// booleans in their literal form, null or absent as "". Objects and arrays
// keep their JSON text.
func textField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}

// promptField is textField with falsy scalars (false or any numeric zero
// such as 0.0, -0, 0e0) treated as absent.
func promptField(raw json.RawMessage) string {
	if string(raw) == "false" {
		return ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == 0 {
		return ""
	}
	return textField(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error": "response encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
