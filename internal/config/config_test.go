package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog_test")
	t.Setenv("SPOTIFY_CLIENT_ID", "client")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Spotify.Market != "US" {
		t.Errorf("market = %q, want US", cfg.Spotify.Market)
	}
	if cfg.Queue.Enabled {
		t.Error("queue should be disabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("SPOTIFY_MARKET", "KR")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://queue:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Spotify.Market != "KR" {
		t.Errorf("market = %q, want KR", cfg.Spotify.Market)
	}
	if !cfg.Queue.Enabled || cfg.Queue.URL != "nats://queue:4222" {
		t.Errorf("queue = %+v", cfg.Queue)
	}
}

func TestLoadYAMLFileLayersBetweenDefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  addr: \":7000\"\n  read_timeout: 5s\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn") // env beats file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000 from file", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want env override warn", cfg.Logging.Level)
	}
}

func TestLoadFailsWithoutRequiredSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"database.url", "spotify.client_id", "spotify.client_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateQueueURLRequiredWhenEnabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.URL = "postgres://x"
	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	cfg.Queue.Enabled = true
	cfg.Queue.URL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled queue without url")
	}
}

func TestEnvTransformIgnoresUnknownVariables(t *testing.T) {
	if got := envTransform("PATH"); got != "" {
		t.Errorf("envTransform(PATH) = %q, want empty", got)
	}
	if got := envTransform("DATABASE_URL"); got != "database.url" {
		t.Errorf("envTransform(DATABASE_URL) = %q", got)
	}
}
