package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all spendgrid configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Spend      SpendConfig      `toml:"spend"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	// UserHeader carries the caller id set by the fronting identity provider.
	UserHeader string `toml:"user_header"`
	// DevUser stands in for requests without UserHeader. Local use only.
	DevUser string `toml:"dev_user,omitempty"`
}

// DatabaseConfig selects and locates the datastore.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path,omitempty"`
	URL    string `toml:"url,omitempty"`
}

// SpendConfig holds defaults stamped on new entries.
type SpendConfig struct {
	Currency string `toml:"currency"`
}

// AppearanceConfig holds terminal display preferences.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:       "127.0.0.1:8787",
			UserHeader: "X-User-Id",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(DataDir(), "spendgrid.db"),
		},
		Spend: SpendConfig{
			Currency: "USD",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendgrid")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spendgrid")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendgrid")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "spendgrid")
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path (ConfigPath when empty), returning
// defaults if it doesn't exist. Environment overrides apply last.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own flag
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if url := os.Getenv("SPENDGRID_DATABASE_URL"); url != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.URL = url
	}
	if addr := os.Getenv("SPENDGRID_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if user := os.Getenv("SPENDGRID_DEV_USER"); user != "" {
		cfg.Server.DevUser = user
	}
}

// Validate reports settings the server can't start with.
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres", "postgresql":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Server.UserHeader == "" {
		return fmt.Errorf("server.user_header must not be empty")
	}
	return nil
}

// DSN returns the driver-specific connection string.
func (c Config) DSN() string {
	if strings.HasPrefix(strings.ToLower(c.Database.Driver), "postgres") {
		return c.Database.URL
	}
	return c.Database.Path
}

// Save writes the config to path (ConfigPath when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path (ConfigPath when empty).
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}
