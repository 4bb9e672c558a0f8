package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trichat.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRegistry().Specs(), reg.Specs())
	assert.Equal(t, 120*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, logging.LogLevelInfo, cfg.LogLevel())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8787", cfg.Server.Addr)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter-3model-chat", cfg.Server.ServiceName)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"

[upstream]
temperature = 0.2
timeout = "45s"

[log]
level = "debug"
format = "text"

[[models]]
key = "mini"
id = "openai/gpt-4o-mini"

[[models]]
key = "claude"
id = "anthropic/claude-sonnet-4.5"
provider = "anthropic"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "openrouter-3model-chat", cfg.Server.ServiceName, "unset keys keep defaults")
	assert.InDelta(t, 0.2, cfg.Upstream.Temperature, 1e-9)
	assert.Equal(t, 45*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel())

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"mini", "claude"}, reg.Keys())
	assert.Equal(t, []string{core.ProviderOpenRouter, core.ProviderAnthropic}, reg.Providers())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRICHAT_ADDR", ":1234")
	t.Setenv("TRICHAT_LOG_FORMAT", "text")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"bad toml":        `[server`,
		"bad provider":    "[[models]]\nkey = \"a\"\nid = \"x/a\"\nprovider = \"ollama\"\n",
		"duplicate keys":  "[[models]]\nkey = \"a\"\nid = \"x/a\"\n[[models]]\nkey = \"a\"\nid = \"x/b\"\n",
		"bad temperature": "[upstream]\ntemperature = 3.0\n",
		"bad base url":    "[upstream]\nbase_url = \"not a url\"\n",
		"bad log level":   "[log]\nlevel = \"loud\"\n",
		"bad timeout":     "[upstream]\ntimeout = \"soon\"\n",
		"zero body limit": "[server]\nmax_body_bytes = 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	cfg := Default()
	cfg.Upstream.Temperature = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidate_AnthropicMaxTokens(t *testing.T) {
	cfg := Default()
	cfg.Anthropic.MaxTokens = 0
	require.NoError(t, cfg.Validate(), "unused provider settings are not checked")

	cfg.Models = append(cfg.Models, ModelConfig{Key: "direct", ID: "anthropic/claude-sonnet-4.5", Provider: core.ProviderAnthropic})
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "anthropic.max_tokens")

	_, err = Load(writeConfig(t, "[anthropic]\nmax_tokens = 0\n[[models]]\nkey = \"c\"\nid = \"claude-x\"\nprovider = \"anthropic\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCredential_ReadAtCallTime(t *testing.T) {
	env := map[string]string{}
	cfg := Default()
	cfg.SetGetenv(func(k string) string { return env[k] })

	assert.Equal(t, "", cfg.Credential(core.ProviderOpenRouter))

	env["OPENROUTER_API_KEY"] = " sk-or \n"
	env["ANTHROPIC_API_KEY"] = "sk-ant"
	assert.Equal(t, "sk-or", cfg.Credential(core.ProviderOpenRouter))
	assert.Equal(t, "sk-ant", cfg.Credential(core.ProviderAnthropic))
	assert.Equal(t, "GEMINI_API_KEY", cfg.CredentialEnv(core.ProviderGoogle))
	assert.Equal(t, "", cfg.Credential(core.ProviderGoogle))
	assert.Equal(t, "OPENROUTER_API_KEY", cfg.CredentialEnv(core.ProviderOpenRouter))
}
