package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Pack     PackConfig     `toml:"pack"`
	Icon     IconConfig     `toml:"icon"`
	Probe    ProbeConfig    `toml:"probe"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
}

// PackConfig holds defaults applied to blank metadata fields.
type PackConfig struct {
	DefaultName        string `toml:"default_name"`
	DefaultDescription string `toml:"default_description"`
	OutputDir          string `toml:"output_dir"`
}

// IconConfig controls the built-in pack icon.
type IconConfig struct {
	Enabled        bool   `toml:"enabled"`
	DefaultURL     string `toml:"default_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// UseArtwork prefers the first embedded cover art found in the tracks over the default icon.
	UseArtwork bool `toml:"use_artwork"`
}

// Timeout returns the icon fetch timeout as a [time.Duration].
func (c IconConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProbeConfig contains duration probing settings.
type ProbeConfig struct {
	FFProbePath string `toml:"ffprobe_path"`
	Workers     int    `toml:"workers"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string  `toml:"host"`
	Port        int     `toml:"port"`
	RateLimit   float64 `toml:"rate_limit"`
	Burst       int     `toml:"burst"`
	MaxUploadMB int64   `toml:"max_upload_mb"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PlayerConfig names the external command used for track previews.
type PlayerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects settings the build pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Probe.Workers <= 0 {
		return fmt.Errorf("%w: probe.workers must be positive, got %d", ErrInvalidConfig, c.Probe.Workers)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Icon.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: icon.timeout_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
