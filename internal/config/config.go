package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/logger"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Models  ModelsConfig  `koanf:"models"`
	Chat    ChatConfig    `koanf:"chat"`
	Context ContextConfig `koanf:"context"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

// ChatConfig configures a single chat session.
type ChatConfig struct {
	SessionID        string `koanf:"session_id"`
	AuthToken        string `koanf:"auth_token"`
	MaxFunctionTurns int    `koanf:"max_function_turns"`
	Stream           bool   `koanf:"stream"`
	RequestTimeout   string `koanf:"request_timeout"`
	SystemTemplate   string `koanf:"system_template"`
}

// ContextConfig configures where ambient context comes from.
type ContextConfig struct {
	File     string `koanf:"file"`
	Builtins bool   `koanf:"builtins"`
}

const (
	EnvPrefix                       = "KOTOBA_"
	DefaultLogLevel                 = "info"
	DefaultModelDefault             = "gpt-4o-mini"
	DefaultModelFallback            = ""
	DefaultModelMaxFallbackAttempts = 2
	DefaultOpenAIBaseURL            = "https://api.openai.com/v1"
	DefaultOllamaBaseURL            = "http://localhost:11434/v1"
	DefaultOllamaAPIKey             = "ollama"
	DefaultChatMaxFunctionTurns     = 5
	DefaultChatStream               = true
	DefaultChatRequestTimeout       = "120s"
	DefaultContextBuiltins          = true
)

// providerKeyEnv lists the conventional API key variables per provider.
var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"log.level":                    DefaultLogLevel,
		"models.default":               DefaultModelDefault,
		"models.fallback":              DefaultModelFallback,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []map[string]interface{}{
			{"name": DefaultModelDefault, "provider": "openai"},
			{"name": "claude-3-5-haiku-latest", "provider": "anthropic"},
			{"name": "gemini-2.0-flash", "provider": "gemini"},
			{"name": "llama3", "provider": "ollama", "base_url": DefaultOllamaBaseURL},
		},
		"chat.max_function_turns": DefaultChatMaxFunctionTurns,
		"chat.stream":             DefaultChatStream,
		"chat.request_timeout":    DefaultChatRequestTimeout,
		"context.builtins":        DefaultContextBuiltins,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, errors.WrapWithCategory(err, "load config file "+configPath, errors.ErrConfig)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".kotoba", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables: KOTOBA_CHAT__AUTH_TOKEN -> chat.auth_token
	k.Load(env.Provider(EnvPrefix, ".", envKey), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.WrapWithCategory(err, "decode config", errors.ErrConfig)
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	// Post-Process: Inject standard Env Vars if missing
	for provider, name := range providerKeyEnv {
		key := os.Getenv(name)
		if key == "" {
			continue
		}
		for i, m := range cfg.Models.Registry {
			if m.Provider == provider && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}

	contextFile, err := ExpandPath(cfg.Context.File)
	if err != nil {
		return nil, errors.WrapWithCategory(err, "expand context.file", errors.ErrConfig)
	}
	cfg.Context.File = contextFile

	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks the settings a chat session needs before it can start.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.WrapWithCategory(err, "log.level", errors.ErrConfig)
	}
	if strings.TrimSpace(c.Chat.AuthToken) == "" {
		return errors.Config("chat.auth_token is required (set " + EnvPrefix + "CHAT__AUTH_TOKEN)")
	}
	if c.Chat.MaxFunctionTurns <= 0 {
		return errors.Config(fmt.Sprintf("chat.max_function_turns must be positive, got %d", c.Chat.MaxFunctionTurns))
	}
	if _, err := DurationOrDefault(c.Chat.RequestTimeout, DefaultChatRequestTimeout); err != nil {
		return errors.WrapWithCategory(err, "chat.request_timeout", errors.ErrConfig)
	}
	if strings.TrimSpace(c.Models.Default) == "" {
		return errors.Config("models.default is required")
	}
	return nil
}

// ExpandPath resolves environment variables and "~/" home shortcuts.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(expanded, "~"), "/"))
	}

	return filepath.Clean(expanded), nil
}

func homeDir() (string, error) {
	if home, err := os.UserHomeDir(); err == nil && home != "" && !strings.HasPrefix(home, "~") {
		return home, nil
	}
	current, err := user.Current()
	if err != nil {
		return "", err
	}
	if current.HomeDir == "" {
		return "", fmt.Errorf("HOME is not set")
	}
	return current.HomeDir, nil
}
