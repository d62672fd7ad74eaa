// Package config loads and persists the daemon configuration. Layered
// sources merge in precedence order (system, user, settings written by the
// operator surface, project, environment) over a defaults layer; generation
// settings saved at runtime go to a dedicated file so hand-edited config is
// never rewritten.
package config

import (
	"fmt"

	"github.com/katje/colorizer/gemini"
)

// Config is the full daemon configuration.
type Config struct {
	Database   DatabaseConfig  `mapstructure:"database"`
	Server     ServerConfig    `mapstructure:"server"`
	Queue      QueueConfig     `mapstructure:"queue"`
	Sink       SinkConfig      `mapstructure:"sink"`
	Gemini     GeminiConfig    `mapstructure:"gemini"`
	Generation gemini.Settings `mapstructure:"generation"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the operator HTTP/WebSocket surface.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme"` // Color theme: gruvbox, everforest
}

// QueueConfig configures the scheduler gates.
type QueueConfig struct {
	Concurrency           int `mapstructure:"concurrency"`              // in-flight generation limit (1-2)
	MinDispatchIntervalMS int `mapstructure:"min_dispatch_interval_ms"` // global pacing between calls
	CallTimeoutSeconds    int `mapstructure:"call_timeout_seconds"`     // per-call deadline
}

// SinkConfig configures the artifact export sink.
type SinkConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	CooldownMS int    `mapstructure:"cooldown_ms"`
}

// GeminiConfig configures API access.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Server port constants
const (
	DefaultServerPort = 8750
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// GetDatabasePath returns the configured database path.
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "katje.db"
	}
	return c.Database.Path
}

// GetServerPort returns the configured server port.
func (c *Config) GetServerPort() int {
	if c.Server.Port == 0 {
		return DefaultServerPort
	}
	return c.Server.Port
}

// GetServerAllowedOrigins returns the allowed CORS origins.
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
		}
	}
	return c.Server.AllowedOrigins
}

// GetServerLogTheme returns the log theme (default: everforest).
func (c *Config) GetServerLogTheme() string {
	if c.Server.LogTheme == "" {
		return "everforest"
	}
	return c.Server.LogTheme
}

// String returns a short representation for startup logging. The API key is
// deliberately absent.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {Port: %d, LogTheme: %s}, Queue: {Concurrency: %d}}",
		c.GetDatabasePath(), c.GetServerPort(), c.GetServerLogTheme(), c.Queue.Concurrency)
}
