package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./discpack.db" {
			t.Errorf("expected database path ./discpack.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Probe.Workers != 4 {
			t.Errorf("expected 4 probe workers, got %d", config.Probe.Workers)
		}

		if !config.Icon.Enabled {
			t.Error("expected default icon to be enabled")
		}

		if config.Icon.Timeout() != 10*time.Second {
			t.Errorf("expected 10s icon timeout, got %v", config.Icon.Timeout())
		}

		if config.Pack.DefaultName != "Custom Music Discs" {
			t.Errorf("unexpected default pack name %q", config.Pack.DefaultName)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[pack]
default_name = "Lofi Discs"

[icon]
enabled = false

[probe]
ffprobe_path = "/usr/local/bin/ffprobe"
workers = 8

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Pack.DefaultName != "Lofi Discs" {
			t.Errorf("expected pack name Lofi Discs, got %s", config.Pack.DefaultName)
		}

		if config.Icon.Enabled {
			t.Error("expected icon to be disabled")
		}

		if config.Probe.Workers != 8 {
			t.Errorf("expected 8 workers, got %d", config.Probe.Workers)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Pack.DefaultDescription == "" {
			t.Error("expected missing keys to keep their defaults")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("LoadConfig invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[pack\nname="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "zero workers", mutate: func(c *Config) { c.Probe.Workers = 0 }},
			{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }},
			{name: "negative timeout", mutate: func(c *Config) { c.Icon.TimeoutSeconds = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
