// Package config provides configuration loading for trichat.
//
// Configuration is read from an optional TOML file, layered over built-in
// defaults, then adjusted by environment overrides:
//
//	TRICHAT_ADDR               server listen address
//	TRICHAT_LOG_LEVEL          debug, info, warn, error
//	TRICHAT_LOG_FORMAT         json or text
//	TRICHAT_UPSTREAM_BASE_URL  OpenAI-compatible API root
//
// Upstream credentials are never stored in the file. The file names the
// environment variable holding each credential (OPENROUTER_API_KEY by
// default) and Credential reads it at call time, so a missing key surfaces
// per request rather than at startup.
package config
