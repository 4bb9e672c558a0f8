// Package commands defines the trichat CLI.
//
// Commands
//
//   - serve     Run the HTTP relay (POST /chat, GET /health)
//   - models    Print the model registry
//   - version   Print the build version
//
// The root command loads configuration (file, then TRICHAT_* environment
// overrides) before any subcommand runs so handlers share one validated
// config.
package commands
