// Package server exposes the fan-out relay over HTTP.
//
// # Endpoints
//
//   - POST /chat     - run one turn: {message, sessionId?, systemPrompt?}
//   - GET  /health   - liveness: {ok: true, service: <name>}
//   - OPTIONS *      - cross-origin preflight: {ok: true}
//
// Any other method/path answers 404. Every response is pretty-printed JSON
// and carries permissive CORS headers plus an X-Request-ID.
//
// A turn whose upstream calls partially fail still answers 200; callers must
// treat the per-model outputs object as the unit of truth.
package server
