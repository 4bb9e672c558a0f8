// Package model defines the provider-agnostic upstream call contract used by
// the fan-out coordinator, plus a scripted MockModel for tests.
//
// A Model performs exactly one synchronous request/response exchange per
// Complete call and never retries internally. Non-2xx answers surface as
// StatusError carrying the status code and body.
//
// Providers live in sub-packages: openai (OpenRouter via openai-go),
// anthropic (anthropic-sdk-go) and gemini (genai).
package model
