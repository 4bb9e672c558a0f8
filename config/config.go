package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/logging"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Duration is a time.Duration decoded from strings such as "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete trichat configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Google    GoogleConfig    `toml:"google"`
	Session   SessionConfig   `toml:"session"`
	Log       LogConfig       `toml:"log"`
	Models    []ModelConfig   `toml:"models"`

	getenv func(string) string
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	ServiceName  string `toml:"service_name"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// UpstreamConfig configures the OpenRouter (OpenAI-compatible) upstream.
type UpstreamConfig struct {
	BaseURL     string   `toml:"base_url"`
	APIKeyEnv   string   `toml:"api_key_env"`
	Referer     string   `toml:"referer"`
	Title       string   `toml:"title"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
}

// AnthropicConfig configures the optional direct Anthropic provider. It is
// only used by registry entries with provider = "anthropic".
type AnthropicConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int64  `toml:"max_tokens"`
}

// GoogleConfig configures the optional direct Gemini provider, used by
// registry entries with provider = "google".
type GoogleConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
}

// SessionConfig configures session seeding.
type SessionConfig struct {
	DefaultSystemPrompt string `toml:"default_system_prompt"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ModelConfig is one registry entry.
type ModelConfig struct {
	Key      string `toml:"key"`
	ID       string `toml:"id"`
	Provider string `toml:"provider"`
}

// Default returns the built-in configuration.
func Default() *Config {
	models := make([]ModelConfig, len(core.DefaultModels))
	for i, m := range core.DefaultModels {
		models[i] = ModelConfig{Key: m.Key, ID: m.ID, Provider: m.Provider}
	}
	return &Config{
		Server: ServerConfig{
			Addr:         ":8787",
			ServiceName:  "openrouter-3model-chat",
			MaxBodyBytes: 1 << 20,
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			Referer:     "https://workers.dev",
			Title:       "openrouter-3model-chat-api",
			Temperature: 0.7,
			Timeout:     Duration{120 * time.Second},
		},
		Anthropic: AnthropicConfig{
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 4096,
		},
		Google:  GoogleConfig{APIKeyEnv: "GEMINI_API_KEY"},
		Session: SessionConfig{DefaultSystemPrompt: core.DefaultSystemPrompt},
		Log:     LogConfig{Level: "info", Format: "json"},
		Models:  models,
		getenv:  os.Getenv,
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. An empty path, or a path that does
// not exist, yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies TRICHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := c.env("TRICHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := c.env("TRICHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := c.env("TRICHAT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := c.env("TRICHAT_UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		problems = append(problems, "server.max_body_bytes must be positive")
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL))
	}
	if c.Upstream.APIKeyEnv == "" {
		problems = append(problems, "upstream.api_key_env must not be empty")
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		problems = append(problems, "upstream.temperature must be within [0, 2]")
	}
	if c.Upstream.Timeout.Duration <= 0 {
		problems = append(problems, "upstream.timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		problems = append(problems, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}
	for _, m := range c.Models {
		switch m.Provider {
		case "", core.ProviderOpenRouter:
		case core.ProviderAnthropic:
			if c.Anthropic.APIKeyEnv == "" {
				problems = append(problems, "anthropic.api_key_env must not be empty when an anthropic model is registered")
			}
			if c.Anthropic.MaxTokens <= 0 {
				problems = append(problems, "anthropic.max_tokens must be positive when an anthropic model is registered")
			}
		case core.ProviderGoogle:
			if c.Google.APIKeyEnv == "" {
				problems = append(problems, "google.api_key_env must not be empty when a google model is registered")
			}
		default:
			problems = append(problems, fmt.Sprintf("model %q: unknown provider %q", m.Key, m.Provider))
		}
	}
	if _, err := c.Registry(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Registry builds the model registry from Models.
func (c *Config) Registry() (*core.Registry, error) {
	specs := make([]core.ModelSpec, len(c.Models))
	for i, m := range c.Models {
		specs[i] = core.ModelSpec{Key: m.Key, ID: m.ID, Provider: m.Provider}
	}
	return core.NewRegistry(specs...)
}

// LogLevel returns the parsed log level (info on parse failure).
func (c *Config) LogLevel() logging.LogLevel {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}

// CredentialEnv returns the environment variable holding the credential of
// provider.
func (c *Config) CredentialEnv(provider string) string {
	switch provider {
	case core.ProviderAnthropic:
		return c.Anthropic.APIKeyEnv
	case core.ProviderGoogle:
		return c.Google.APIKeyEnv
	default:
		return c.Upstream.APIKeyEnv
	}
}

// Credential reads the credential for provider from the environment.
func (c *Config) Credential(provider string) string {
	return strings.TrimSpace(c.env(c.CredentialEnv(provider)))
}

// SetGetenv replaces the environment lookup; intended for tests.
func (c *Config) SetGetenv(fn func(string) string) { c.getenv = fn }

func (c *Config) env(key string) string {
	if c.getenv == nil {
		return os.Getenv(key)
	}
	return c.getenv(key)
}
