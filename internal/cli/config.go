package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the CLI configuration stored in ~/.intake/config.toml.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Watch   WatchConfig   `toml:"watch"`
}

// ServerConfig points the queue at the edge server.
type ServerConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	HealthPath string `toml:"health_path"`
}

// StorageConfig locates the local database holding pending actions and
// preferences.
type StorageConfig struct {
	Path string `toml:"path"`
}

// WatchConfig tunes the connectivity prober.
type WatchConfig struct {
	Interval string `toml:"interval"`
}

// configDir returns ~/.intake.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".intake"), nil
}

// DefaultConfigPath returns ~/.intake/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func (c *Config) applyDefaults(configPath string) {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.HealthPath == "" {
		c.Server.HealthPath = "/health"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(filepath.Dir(configPath), "intake.db")
	}
	if c.Watch.Interval == "" {
		c.Watch.Interval = "5s"
	}
}

// HealthURL is the URL the prober polls.
func (c *Config) HealthURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/" + strings.TrimLeft(c.Server.HealthPath, "/")
}

// WatchInterval parses Watch.Interval.
func (c *Config) WatchInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Interval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("watch.interval must be a positive duration, got %q", c.Watch.Interval)
	}
	return d, nil
}

// LoadConfig reads and parses the config file, filling defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("cannot read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config: %w", err)
		}
	}
	cfg.applyDefaults(path)
	return &cfg, nil
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// SetValue sets a config field using dot notation (e.g. "server.api_key").
func SetValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. server.api_key)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "server":
		switch field {
		case "base_url":
			cfg.Server.BaseURL = value
		case "api_key":
			cfg.Server.APIKey = value
		case "health_path":
			cfg.Server.HealthPath = value
		default:
			return fmt.Errorf("unknown field %q in section [server]", field)
		}
	case "storage":
		switch field {
		case "path":
			cfg.Storage.Path = value
		default:
			return fmt.Errorf("unknown field %q in section [storage]", field)
		}
	case "watch":
		switch field {
		case "interval":
			if d, err := time.ParseDuration(value); err != nil || d <= 0 {
				return fmt.Errorf("watch.interval must be a positive duration")
			}
			cfg.Watch.Interval = value
		default:
			return fmt.Errorf("unknown field %q in section [watch]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: server, storage, watch)", section)
	}
	return nil
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
