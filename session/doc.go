// Package session houses concrete implementations of core.SessionStore.
// The contract (and the Session type) live in package core so that the
// coordinator and HTTP layers do not depend on a concrete storage backend.
//
// InMemoryStore is the only backend: sessions live for the lifetime of the
// process and are never evicted.
package session
