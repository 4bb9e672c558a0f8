// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing sessions with pre-existing conversation
// turns. These helpers are intentionally minimal and not intended for
// production usage.
package testutil
