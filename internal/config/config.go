// Package config loads and validates the YAML configuration describing the
// language server and request behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRequestTimeoutSeconds applies when the config file does not set one.
const DefaultRequestTimeoutSeconds = 30

// Config contains the language server configuration for one workspace.
type Config struct {
	Server                ServerConfig `yaml:"server"`
	RequestTimeoutSeconds int          `yaml:"request_timeout_seconds,omitempty"`
}

// ServerConfig describes how to launch the language server.
type ServerConfig struct {
	Command               string                 `yaml:"command"`
	Args                  []string               `yaml:"args,omitempty"`
	InitializationOptions map[string]interface{} `yaml:"initialization_options,omitempty"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// GetDefaultConfig returns the configuration used when no file is given:
// jedi-language-server over stdio.
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Command: "jedi-language-server",
		},
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Command == "" {
		return fmt.Errorf("server.command must not be empty")
	}
	if config.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative")
	}
	if config.RequestTimeoutSeconds == 0 {
		config.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	return nil
}
