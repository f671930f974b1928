// Package config handles configuration loading for tandem. It supports
// XDG config paths, project-level overrides (.tandem.yaml), and
// environment variables. Precedence is resolved once at startup; the
// pipeline core receives an immutable Config snapshot and never reads
// the environment itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable configuration snapshot threaded through the
// pipeline driver and agent invoker constructors.
type Config struct {
	Agents  AgentsConfig  `mapstructure:"agents"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Results ResultsConfig `mapstructure:"results"`
}

// AgentsConfig holds the external agent command configuration.
type AgentsConfig struct {
	// ArchitectCommand is the CLI command for the architect agent.
	ArchitectCommand string `mapstructure:"architect_command"`
	// BuilderCommand is the CLI command for the builder agent.
	BuilderCommand string `mapstructure:"builder_command"`
	// Simulate synthesizes agent invocations instead of spawning them.
	Simulate bool `mapstructure:"simulate"`
}

// RetryConfig holds the invocation retry policy. Delays are plain
// seconds so the legacy environment variables keep working.
type RetryConfig struct {
	// MaxAttempts is the maximum number of invocation attempts.
	MaxAttempts int `mapstructure:"max_attempts"`
	// SleepSeconds is the fixed delay between attempts.
	SleepSeconds int `mapstructure:"sleep_seconds"`
	// TimeoutSeconds is the hard wall-clock limit per attempt.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Sleep returns the between-attempt delay as a duration.
func (r RetryConfig) Sleep() time.Duration {
	return time.Duration(r.SleepSeconds) * time.Second
}

// Timeout returns the per-attempt limit as a duration.
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// VerifyConfig holds verification command resolution settings.
type VerifyConfig struct {
	// Commands is a raw command list override (JSON array, semicolon-,
	// or newline-delimited), usually supplied via environment.
	Commands string `mapstructure:"commands"`
	// DefaultCommands is the configured fallback command list.
	DefaultCommands []string `mapstructure:"default_commands"`
}

// ResultsConfig holds artifact storage settings.
type ResultsConfig struct {
	// Dir is the directory stage artifacts are written to.
	Dir string `mapstructure:"dir"`
}

// CommandFor returns the configured command for the given role name
// (architect or builder).
func (c *Config) CommandFor(role string) string {
	if role == "architect" {
		return c.Agents.ArchitectCommand
	}
	return c.Agents.BuilderCommand
}

// Load loads configuration from XDG paths, a project-level
// .tandem.yaml, and environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (TANDEM_* or the legacy agent names)
//  2. Project config (.tandem.yaml in the current directory or a parent)
//  3. User config (~/.config/tandem/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with built-in defaults only.
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts:    2,
			SleepSeconds:   20,
			TimeoutSeconds: 300,
		},
		Results: ResultsConfig{
			Dir: filepath.Join(".tandem", "results"),
		},
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("agents.architect_command", "")
	v.SetDefault("agents.builder_command", "")
	v.SetDefault("agents.simulate", false)

	v.SetDefault("retry.max_attempts", 2)
	v.SetDefault("retry.sleep_seconds", 20)
	v.SetDefault("retry.timeout_seconds", 300)

	v.SetDefault("verify.commands", "")
	v.SetDefault("verify.default_commands", []string{})

	v.SetDefault("results.dir", filepath.Join(".tandem", "results"))
}

// bindEnv maps environment variables onto config keys. The legacy
// names used by existing agent setups are accepted alongside the
// TANDEM_-prefixed ones.
func bindEnv(v *viper.Viper) {
	v.BindEnv("agents.architect_command", "TANDEM_ARCHITECT_CMD", "CLAUDE_CODE_CMD")
	v.BindEnv("agents.builder_command", "TANDEM_BUILDER_CMD", "CODEX_CLI_CMD")
	v.BindEnv("agents.simulate", "TANDEM_SIMULATE", "SIMULATE_AGENTS")
	v.BindEnv("retry.max_attempts", "TANDEM_MAX_RETRIES", "AGENT_MAX_RETRIES")
	v.BindEnv("retry.sleep_seconds", "TANDEM_RETRY_SLEEP", "AGENT_RETRY_SLEEP")
	v.BindEnv("retry.timeout_seconds", "TANDEM_CLI_TIMEOUT", "CLI_TIMEOUT_SECONDS")
	v.BindEnv("verify.commands", "TANDEM_VERIFY_COMMANDS", "VERIFY_COMMANDS")
	v.BindEnv("results.dir", "TANDEM_RESULTS_DIR")
}

// userConfigDir returns the XDG config directory for tandem.
func userConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tandem")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "tandem")
	}
	return filepath.Join(home, ".config", "tandem")
}

// findProjectConfig searches for .tandem.yaml in the current directory
// and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".tandem.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
