// Package config provides configuration management for truthordare.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the game server and CLI.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7080").
	ServerAddr string `yaml:"addr" env:"TOD_ADDR" env-default:":7080"`

	// DataDir is the directory for local data (the content database).
	DataDir string `yaml:"data_dir" env:"TOD_DATA_DIR"`

	// ContentFile is an optional JSON or YAML prompt pack that replaces the
	// bundled content.
	ContentFile string `yaml:"content_file" env:"TOD_CONTENT_FILE"`

	// ContentDB is an optional SQLite content database. It takes precedence
	// over ContentFile when set.
	ContentDB string `yaml:"content_db" env:"TOD_CONTENT_DB"`

	// DrawDelay is the pause before a plain draw is revealed.
	DrawDelay time.Duration `yaml:"draw_delay" env:"TOD_DRAW_DELAY" env-default:"400ms"`

	// SpinDuration is the length of the bottle spin animation.
	SpinDuration time.Duration `yaml:"spin_duration" env:"TOD_SPIN_DURATION" env-default:"2100ms"`

	// IdleTimeout closes API sessions that have not been touched for this long.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"TOD_IDLE_TIMEOUT" env-default:"30m"`

	// MaxSessions caps the number of live API sessions.
	MaxSessions int `yaml:"max_sessions" env:"TOD_MAX_SESSIONS" env-default:"1000"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.DrawDelay < 0 || c.SpinDuration < 0 {
		return fmt.Errorf("draw delay and spin duration must not be negative")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}
	if c.ContentFile != "" {
		if _, err := os.Stat(c.ContentFile); err != nil {
			return fmt.Errorf("content file: %w", err)
		}
	}
	return nil
}

// DefaultContentDB returns the content database path inside DataDir.
func (c *Config) DefaultContentDB() string {
	return filepath.Join(c.DataDir, "content.db")
}

// Help returns a description of every environment variable.
func Help() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".truthordare"
	}
	return filepath.Join(home, ".truthordare")
}
