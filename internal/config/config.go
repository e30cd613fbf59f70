package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values like "5s" round-trip.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds queue configuration. The engine consumes it read-only;
// values are passed into each operation rather than cached inside it.
type Config struct {
	MaxRetries   int      `toml:"max_retries"`
	BackoffBase  int      `toml:"backoff_base"`
	DBPath       string   `toml:"db_path"`
	PIDFile      string   `toml:"pid_file"`
	PollInterval Duration `toml:"poll_interval"`
	Port         int      `toml:"port"`
}

// Dir returns the queuectl home directory, ~/.queuectl by default.
func Dir() string {
	if dir := os.Getenv("QUEUECTL_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".queuectl")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxRetries:   3,
		BackoffBase:  2,
		DBPath:       filepath.Join(Dir(), "jobs.db"),
		PIDFile:      filepath.Join(Dir(), "workers.pid"),
		PollInterval: Duration{time.Second},
		Port:         8080,
	}
}

// Load reads the config file at path, merged over defaults. A missing file
// yields the defaults. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if db := os.Getenv("QUEUECTL_DB"); db != "" {
		cfg.DBPath = db
	}
	if port := os.Getenv("QUEUECTL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.BackoffBase < 1 {
		return fmt.Errorf("backoff_base must be >= 1, got %d", c.BackoffBase)
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// Save writes the config as TOML to path, creating directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Keys lists the settable configuration keys.
func Keys() []string {
	return []string{"max_retries", "backoff_base", "db_path", "pid_file", "poll_interval", "port"}
}

// Set updates the named key from its string representation.
func (c *Config) Set(key, value string) error {
	switch key {
	case "max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_retries: %w", err)
		}
		c.MaxRetries = n
	case "backoff_base":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("backoff_base: %w", err)
		}
		c.BackoffBase = n
	case "db_path":
		c.DBPath = value
	case "pid_file":
		c.PIDFile = value
	case "poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		c.PollInterval = Duration{d}
	case "port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		c.Port = n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// Value returns the string representation of the named key.
func (c *Config) Value(key string) (string, error) {
	switch key {
	case "max_retries":
		return strconv.Itoa(c.MaxRetries), nil
	case "backoff_base":
		return strconv.Itoa(c.BackoffBase), nil
	case "db_path":
		return c.DBPath, nil
	case "pid_file":
		return c.PIDFile, nil
	case "poll_interval":
		return c.PollInterval.String(), nil
	case "port":
		return strconv.Itoa(c.Port), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}
