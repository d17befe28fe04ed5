// Package config loads the grantha configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the grantha configuration.
type Config struct {
	Title    string         `yaml:"title"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Services ServicesConfig `yaml:"services"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Glossary GlossaryConfig `yaml:"glossary"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
	RateLimit   float64  `yaml:"rate_limit,omitempty"` // requests per second, 0 disables
	RateBurst   int      `yaml:"rate_burst,omitempty"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects and configures the article store backend.
type StoreConfig struct {
	Type string `yaml:"type"`          // "sqlite" or "postgres"
	DB   string `yaml:"db,omitempty"`  // sqlite: database file path
	DSN  string `yaml:"dsn,omitempty"` // postgres: connection string (env vars expanded)
}

// GetDSN returns the postgres DSN with environment variable expansion.
func (s StoreConfig) GetDSN() string {
	return os.ExpandEnv(s.DSN)
}

// ServicesConfig holds the endpoints of the external collaborators.
type ServicesConfig struct {
	Citations string `yaml:"citations,omitempty"`
	Quotes    string `yaml:"quotes,omitempty"`
	Glossary  string `yaml:"glossary,omitempty"`
	Translate string `yaml:"translate,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"` // e.g. "10s"
}

// GetTimeout returns the parsed request timeout (default: 10s).
func (s ServicesConfig) GetTimeout() time.Duration {
	if s.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// AutosaveConfig configures the debounce window.
type AutosaveConfig struct {
	Delay string `yaml:"delay,omitempty"` // e.g. "2s"
}

// GetDelay returns the parsed quiescence window (default: 2s).
func (a AutosaveConfig) GetDelay() time.Duration {
	if a.Delay == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(a.Delay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GlossaryConfig selects the active glossary. When File is set the term
// list is read from a local YAML file and watched for changes;
// otherwise terms come from the glossary service.
type GlossaryConfig struct {
	Active string `yaml:"active,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Title: "Grantha",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Store: StoreConfig{
			Type: "sqlite",
			DB:   "./grantha.db",
		},
		Autosave: AutosaveConfig{
			Delay: "2s",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't
// exist, returns the default configuration.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromDir looks for grantha.yaml in the given directory, falling
// back to defaults when absent.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "grantha.yaml"))
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	if c.Store.Type == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("config: postgres store requires a dsn")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
