package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/kotoba/internal/config"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml
var embeddedDefaultConfig []byte

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage Kotoba configuration file.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Dump fully resolved configuration",
	Long:  `Display current configuration with all defaults applied and environment variables resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(viewOf(redactConfigSecrets(loadedCfg))); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  `Create a default configuration file at $HOME/.kotoba/config.yaml if it doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir := filepath.Join(home, ".kotoba")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}

		configPath := filepath.Join(configDir, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Config already exists at %s\n", configPath)
			fmt.Fprintln(out, "To reinitialize, remove the existing config file first.")
			return nil
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to check config file: %w", err)
		}

		defaultConfig := strings.TrimSpace(string(embeddedDefaultConfig)) + "\n"
		if err := atomic.WriteFile(configPath, strings.NewReader(defaultConfig)); err != nil {
			return fmt.Errorf("failed to write config to %s: %w", configPath, err)
		}

		fmt.Fprintf(out, "Initialized config at %s\n", configPath)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Set chat.auth_token or KOTOBA_CHAT__AUTH_TOKEN")
		fmt.Fprintln(out, "2. Set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY for your models")
		fmt.Fprintln(out, "3. Run 'kotoba config view' to verify your configuration")
		return nil
	},
}

// configView mirrors config.Config with yaml tags for display.
type configView struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Models struct {
		Default             string      `yaml:"default"`
		Fallback            string      `yaml:"fallback"`
		MaxFallbackAttempts int         `yaml:"max_fallback_attempts"`
		Registry            []modelView `yaml:"registry"`
	} `yaml:"models"`
	Chat struct {
		SessionID        string `yaml:"session_id"`
		AuthToken        string `yaml:"auth_token"`
		MaxFunctionTurns int    `yaml:"max_function_turns"`
		Stream           bool   `yaml:"stream"`
		RequestTimeout   string `yaml:"request_timeout"`
		SystemTemplate   string `yaml:"system_template"`
	} `yaml:"chat"`
	Context struct {
		File     string `yaml:"file"`
		Builtins bool   `yaml:"builtins"`
	} `yaml:"context"`
}

type modelView struct {
	Name           string `yaml:"name"`
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url,omitempty"`
	APIKey         string `yaml:"api_key,omitempty"`
	RequestTimeout string `yaml:"request_timeout,omitempty"`
}

func viewOf(c *config.Config) configView {
	var v configView
	v.Log.Level = c.Log.Level
	v.Models.Default = c.Models.Default
	v.Models.Fallback = c.Models.Fallback
	v.Models.MaxFallbackAttempts = c.Models.MaxFallbackAttempts
	for _, m := range c.Models.Registry {
		v.Models.Registry = append(v.Models.Registry, modelView(m))
	}
	v.Chat.SessionID = c.Chat.SessionID
	v.Chat.AuthToken = c.Chat.AuthToken
	v.Chat.MaxFunctionTurns = c.Chat.MaxFunctionTurns
	v.Chat.Stream = c.Chat.Stream
	v.Chat.RequestTimeout = c.Chat.RequestTimeout
	v.Chat.SystemTemplate = c.Chat.SystemTemplate
	v.Context.File = c.Context.File
	v.Context.Builtins = c.Context.Builtins
	return v
}

func redactConfigSecrets(in *config.Config) *config.Config {
	if in == nil {
		return nil
	}

	out := *in

	if len(in.Models.Registry) > 0 {
		out.Models.Registry = make([]config.ModelRegistry, len(in.Models.Registry))
		copy(out.Models.Registry, in.Models.Registry)
		for i := range out.Models.Registry {
			out.Models.Registry[i].APIKey = maskSecret(out.Models.Registry[i].APIKey)
		}
	}

	out.Chat.AuthToken = maskSecret(out.Chat.AuthToken)

	return &out
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
