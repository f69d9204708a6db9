// Package config loads engine configuration from files, environment
// variables, and CLI flags.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	State   StateConfig   `mapstructure:"state"`
	Compile CompileConfig `mapstructure:"compile"`
	Repair  RepairConfig  `mapstructure:"repair"`
	Brand   BrandConfig   `mapstructure:"brand"`
	Events  EventsConfig  `mapstructure:"events"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig configures the language model endpoint.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// StateConfig configures scene and history persistence.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // sqlite | json
	Path    string `mapstructure:"path"`
}

// CompileConfig configures scene compilation and timeline export.
type CompileConfig struct {
	ExportDir string `mapstructure:"export_dir"`
}

// RepairConfig configures the automatic repair loop.
type RepairConfig struct {
	Auto        bool `mapstructure:"auto"`
	MaxAttempts int  `mapstructure:"max_attempts"`
}

// BrandConfig configures URL-derived brand extraction.
type BrandConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EventsConfig configures the internal event bus.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative")
	}
	switch c.State.Backend {
	case "", "sqlite", "json":
	default:
		return fmt.Errorf("state.backend %q unknown (want sqlite or json)", c.State.Backend)
	}
	if c.Repair.MaxAttempts < 0 {
		return fmt.Errorf("repair.max_attempts cannot be negative")
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size cannot be negative")
	}
	return nil
}
