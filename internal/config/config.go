// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend modes. The backend is a visible configuration value, never
// inferred at runtime from what happens to be importable or reachable.
const (
	BackendReal        = "real"
	BackendMock        = "mock"
	BackendUnavailable = "unavailable"
)

// defaultDataDir returns the default directory for the bridge's data files.
// Uses ~/.whatsapp-mcp/ so the gateway finds the store regardless of CWD.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./store"
	}
	return filepath.Join(home, ".whatsapp-mcp")
}

// Config holds all configuration for the WhatsApp MCP gateway.
type Config struct {
	// Bridge endpoint
	BridgeURL string `mapstructure:"bridge_url"`
	AuthUser  string `mapstructure:"auth_user"`
	AuthPass  string `mapstructure:"auth_pass"`

	// Backend selection: real, mock, or unavailable
	Backend string `mapstructure:"backend"`

	// Paths
	StorePath string `mapstructure:"store_path"`
	MediaDir  string `mapstructure:"media_dir"`

	// Per-call timeouts, scaled to expected cost
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
	StatusTimeout time.Duration `mapstructure:"status_timeout"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`
	MediaTimeout  time.Duration `mapstructure:"media_timeout"`

	// Connection waiting
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Response formatting
	CharacterLimit int    `mapstructure:"character_limit"`
	ResponseFormat string `mapstructure:"response_format"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		BridgeURL:      "http://localhost:8080",
		Backend:        BackendReal,
		StorePath:      filepath.Join(dataDir, "messages.db"),
		MediaDir:       filepath.Join(dataDir, "media"),
		HealthTimeout:  2 * time.Second,
		StatusTimeout:  5 * time.Second,
		SendTimeout:    10 * time.Second,
		MediaTimeout:   30 * time.Second,
		PollInterval:   2 * time.Second,
		CharacterLimit: 25000,
		ResponseFormat: "json",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadConfig loads configuration from file, environment, and defaults.
// Priority: CLI flags > Environment > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("bridge_url", defaults.BridgeURL)
	v.SetDefault("auth_user", defaults.AuthUser)
	v.SetDefault("auth_pass", defaults.AuthPass)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("store_path", defaults.StorePath)
	v.SetDefault("media_dir", defaults.MediaDir)
	v.SetDefault("health_timeout", defaults.HealthTimeout)
	v.SetDefault("status_timeout", defaults.StatusTimeout)
	v.SetDefault("send_timeout", defaults.SendTimeout)
	v.SetDefault("media_timeout", defaults.MediaTimeout)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("character_limit", defaults.CharacterLimit)
	v.SetDefault("response_format", defaults.ResponseFormat)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	// Environment variables with WAMCP_ prefix
	v.SetEnvPrefix("WAMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names used by earlier deployments of the bridge
	_ = v.BindEnv("bridge_url", "WAMCP_BRIDGE_URL", "WHATSAPP_API_URL")
	_ = v.BindEnv("auth_user", "WAMCP_AUTH_USER", "WHATSAPP_AUTH_USER")
	_ = v.BindEnv("auth_pass", "WAMCP_AUTH_PASS", "WHATSAPP_AUTH_PASS")

	// Load from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file falls back to built-in defaults.
			// Only fail if the file exists but can't be read.
			isNotFound := errors.Is(err, os.ErrNotExist)
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid. A bad backend mode or
// log level is a deployment mistake and fails startup hard.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendReal, BackendMock, BackendUnavailable:
	default:
		return fmt.Errorf("invalid backend: %s (must be real, mock, or unavailable)", c.Backend)
	}

	if c.BridgeURL == "" {
		return fmt.Errorf("bridge URL must not be empty")
	}
	if !strings.HasPrefix(c.BridgeURL, "http://") && !strings.HasPrefix(c.BridgeURL, "https://") {
		return fmt.Errorf("invalid bridge URL: %s (must be http or https)", c.BridgeURL)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.ResponseFormat {
	case "json", "markdown":
	default:
		return fmt.Errorf("invalid response format: %s (must be json or markdown)", c.ResponseFormat)
	}

	if c.HealthTimeout <= 0 || c.StatusTimeout <= 0 || c.SendTimeout <= 0 || c.MediaTimeout <= 0 {
		return fmt.Errorf("all timeouts must be positive")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if c.CharacterLimit <= 0 {
		return fmt.Errorf("character limit must be positive")
	}

	return nil
}
