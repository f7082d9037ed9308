package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Stream        StreamConfig        `toml:"stream"`
	Listing       ListingConfig       `toml:"listing"`
	API           APIConfig           `toml:"api"`
	Notifications NotificationsConfig `toml:"notifications"`
	Database      DatabaseConfig      `toml:"database"`
	Log           LogConfig           `toml:"log"`
}

// ServerConfig locates the REST API and the push channel endpoint.
type ServerConfig struct {
	BaseURL    string `toml:"base_url"`
	EventsPath string `toml:"events_path"`
}

// StreamConfig contains push channel timing settings.
type StreamConfig struct {
	ReconnectDelay time.Duration `toml:"reconnect_delay"`
	ConnectDelay   time.Duration `toml:"connect_delay"`
}

// ListingConfig contains paginated listing settings.
type ListingConfig struct {
	PageSize int `toml:"page_size"`
}

// APIConfig contains REST client settings.
type APIConfig struct {
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

// NotificationsConfig contains alert policy settings.
type NotificationsConfig struct {
	AlertOnFinal bool `toml:"alert_on_final"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
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

// Validate reports settings that would leave the client unusable.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("%w: server.base_url must be an http(s) URL, got %q", ErrInvalidConfig, c.Server.BaseURL)
	}
	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: stream.reconnect_delay must be positive", ErrInvalidConfig)
	}
	if c.Stream.ConnectDelay < 0 {
		return fmt.Errorf("%w: stream.connect_delay must not be negative", ErrInvalidConfig)
	}
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("%w: listing.page_size must be positive", ErrInvalidConfig)
	}
	return nil
}

// EventsURL joins the server base URL with the push channel path.
func (c *Config) EventsURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/" + strings.TrimLeft(c.Server.EventsPath, "/")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
