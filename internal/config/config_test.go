package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/kotoba/internal/errors"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	clearProviderEnv(t)

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultModelDefault, cfg.Models.Default)
	assert.Equal(t, DefaultModelMaxFallbackAttempts, cfg.Models.MaxFallbackAttempts)
	assert.Equal(t, DefaultChatMaxFunctionTurns, cfg.Chat.MaxFunctionTurns)
	assert.Equal(t, DefaultChatRequestTimeout, cfg.Chat.RequestTimeout)
	assert.True(t, cfg.Chat.Stream)
	assert.True(t, cfg.Context.Builtins)
	assert.Empty(t, cfg.Chat.AuthToken)
	require.Len(t, cfg.Models.Registry, 4)
	assert.Equal(t, "openai", cfg.Models.Registry[0].Provider)
	assert.Equal(t, DefaultOllamaBaseURL, cfg.Models.Registry[3].BaseURL)
}

func TestLoad_EnvOverridesNestedKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KOTOBA_CHAT__AUTH_TOKEN", "tok-123")
	t.Setenv("KOTOBA_CHAT__MAX_FUNCTION_TURNS", "9")
	t.Setenv("KOTOBA_LOG__LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Chat.AuthToken)
	assert.Equal(t, 9, cfg.Chat.MaxFunctionTurns)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileAndFlags(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chat:
  auth_token: from-file
  system_template: "ctx={{.Context}}"
context:
  file: ~/context.yaml
models:
  default: llama3
  registry:
    - name: llama3
      provider: ollama
      base_url: http://localhost:11434/v1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("models.default", DefaultModelDefault, "")
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Chat.AuthToken)
	assert.Equal(t, "ctx={{.Context}}", cfg.Chat.SystemTemplate)
	assert.Equal(t, "llama3", cfg.Models.Default)
	require.Len(t, cfg.Models.Registry, 1)
	assert.Equal(t, "ollama", cfg.Models.Registry[0].Provider)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "context.yaml"), cfg.Context.File)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearProviderEnv(t)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := Load(cmd)
	assert.ErrorIs(t, err, errors.ErrConfig)
}

func TestLoad_InjectsProviderKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(nil)
	require.NoError(t, err)

	for _, m := range cfg.Models.Registry {
		if m.Provider == "anthropic" {
			assert.Equal(t, "sk-ant", m.APIKey)
		} else {
			assert.Empty(t, m.APIKey)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Log:    LogConfig{Level: "info"},
			Models: ModelsConfig{Default: "gpt-4o-mini"},
			Chat: ChatConfig{
				AuthToken:        "tok",
				MaxFunctionTurns: 3,
				RequestTimeout:   "30s",
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing token", func(c *Config) { c.Chat.AuthToken = "  " }, false},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, false},
		{"zero turns", func(c *Config) { c.Chat.MaxFunctionTurns = 0 }, false},
		{"bad timeout", func(c *Config) { c.Chat.RequestTimeout = "soon" }, false},
		{"no model", func(c *Config) { c.Models.Default = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrConfig)
		})
	}
}

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("", "2s")
	require.NoError(t, err)
	assert.Equal(t, "2s", d.String())

	_, err = DurationOrDefault("", "")
	assert.Error(t, err)

	_, err = DurationOrDefault("abc", "1s")
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("KOTOBA_TEST_DIR", "/tmp/kotoba")

	got, err := ExpandPath("$KOTOBA_TEST_DIR/ctx.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kotoba/ctx.yaml", got)

	got, err = ExpandPath("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
