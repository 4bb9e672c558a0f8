// Package core provides the foundational domain types and contracts used by
// trichat. It defines:
//
//   - Messages and roles (the units of a conversation history)
//   - The model Registry (short key to upstream model id mapping)
//   - Sessions (per-model conversation histories scoped by a caller id)
//   - Outcomes (the per-model success-or-error result of a turn)
//   - The SessionStore contract implemented by package session
//
// Implementation concerns (storage backends, upstream transport, HTTP) are
// kept out of this package so that higher layers only depend on these small
// types and interfaces.
package core
