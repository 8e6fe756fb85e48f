// Package config loads layered configuration: struct defaults, an optional
// YAML file, then environment variables, highest layer winning.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths are searched in order when CONFIG_PATH is unset.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalog/config.yaml",
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Spotify  SpotifyConfig  `koanf:"spotify"`
	Queue    QueueConfig    `koanf:"queue"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	URL     string `koanf:"url"`
	Migrate bool   `koanf:"migrate"`
}

// SpotifyConfig holds the provider credentials and tuning.
type SpotifyConfig struct {
	ClientID       string  `koanf:"client_id"`
	ClientSecret   string  `koanf:"client_secret"`
	Market         string  `koanf:"market"`
	BaseURL        string  `koanf:"base_url"`
	TokenURL       string  `koanf:"token_url"`
	RequestsPerSec float64 `koanf:"requests_per_sec"`
}

// QueueConfig holds the NATS sink settings. Disabled by default: the server
// runs fine without a queue, it just stops enqueueing discoveries.
type QueueConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Topic   string `koanf:"topic"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL:     "",
			Migrate: true,
		},
		Spotify: SpotifyConfig{
			Market:         "US",
			RequestsPerSec: 10,
		},
		Queue: QueueConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Topic:   "catalog.album.sync",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required (DATABASE_URL)"))
	}
	if c.Spotify.ClientID == "" {
		errs = append(errs, errors.New("spotify.client_id is required (SPOTIFY_CLIENT_ID)"))
	}
	if c.Spotify.ClientSecret == "" {
		errs = append(errs, errors.New("spotify.client_secret is required (SPOTIFY_CLIENT_SECRET)"))
	}
	if c.Queue.Enabled && c.Queue.URL == "" {
		errs = append(errs, errors.New("queue.url is required when the queue is enabled"))
	}
	return errors.Join(errs...)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings translates environment variable names to config paths.
// Unmapped variables are ignored so arbitrary environment noise cannot
// leak into the configuration.
var envMappings = map[string]string{
	"server_addr":             "server.addr",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	"database_url":     "database.url",
	"database_migrate": "database.migrate",

	"spotify_client_id":        "spotify.client_id",
	"spotify_client_secret":    "spotify.client_secret",
	"spotify_market":           "spotify.market",
	"spotify_base_url":         "spotify.base_url",
	"spotify_token_url":        "spotify.token_url",
	"spotify_requests_per_sec": "spotify.requests_per_sec",

	"queue_enabled": "queue.enabled",
	"queue_url":     "queue.url",
	"nats_url":      "queue.url",
	"queue_topic":   "queue.topic",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransform(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
