// Package fanout implements the turn coordinator: it appends a user message
// to every registered model's history in a session, issues one independent
// upstream call per model and reconciles each history with its own outcome.
//
// Failure is isolated per model. A failed branch leaves its history exactly
// as it was before the turn and is reported as an error Outcome; successful
// branches keep the turn. A turn always yields one Outcome per registered
// model, in registry order.
package fanout
