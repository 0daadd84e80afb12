// Package config loads the TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration. API keys are never stored here; they
// come from the environment variables named in the provider table.
type Config struct {
	Provider         string `toml:"provider"`
	Model            string `toml:"model"`
	MaxSteps         int    `toml:"max_steps"`
	AutoApprove      bool   `toml:"auto_approve"`
	Streaming        bool   `toml:"streaming"`
	UserInstructions string `toml:"user_instructions"`

	Tools ToolsConfig          `toml:"tools"`
	MCP   map[string]MCPServer `toml:"mcp"`
}

// ToolsConfig tunes built-in tool behavior.
type ToolsConfig struct {
	DefaultTimeoutMs int            `toml:"default_timeout_ms"`
	MaxTimeoutMs     int            `toml:"max_timeout_ms"`
	CharLimits       map[string]int `toml:"char_limits"`
	LineLimits       map[string]int `toml:"line_limits"`
}

// MCPServer describes one external tool server started over stdio.
type MCPServer struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:  "openai",
		MaxSteps:  50,
		Streaming: true,
		Tools: ToolsConfig{
			DefaultTimeoutMs: 10000,  // 10 seconds
			MaxTimeoutMs:     600000, // 10 minutes
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tinker", "config.toml"), nil
}

// Load reads the config at path, layered over defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Tools.DefaultTimeoutMs <= 0 {
		cfg.Tools.DefaultTimeoutMs = 10000
	}
	if cfg.Tools.MaxTimeoutMs <= 0 {
		cfg.Tools.MaxTimeoutMs = 600000
	}
	return cfg, nil
}
