// Package config provides configuration loading and structs for the resep server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Model   ModelConfig   `yaml:"model"`
	Import  ImportConfig  `yaml:"import"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_sec"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// StorageConfig selects the corpus store.
type StorageConfig struct {
	Driver       string      `yaml:"driver"`
	DatabasePath string      `yaml:"database_path"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings, used when driver is "redis".
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// ModelConfig holds recommendation settings.
type ModelConfig struct {
	Neighbors    int `yaml:"neighbors"`
	MaxNeighbors int `yaml:"max_neighbors"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	WatchDir     string `yaml:"watch_dir"`
	DedupeByName bool   `yaml:"dedupe_by_name"`
}

// Load reads and parses the config file at path, substitutes ${VAR} references,
// applies defaults, expands paths and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Import.WatchDir != "" {
		cfg.Import.WatchDir = expandPath(cfg.Import.WatchDir, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DatabasePath == "" {
			errs = append(errs, errors.New("storage.database_path is required for sqlite"))
		}
	case "redis":
		if len(c.Storage.Redis.Addrs) == 0 {
			errs = append(errs, errors.New("storage.redis.addrs is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be sqlite or redis, got %q", c.Storage.Driver))
	}
	if c.Model.Neighbors < 1 {
		errs = append(errs, fmt.Errorf("model.neighbors must be positive, got %d", c.Model.Neighbors))
	}
	if c.Model.MaxNeighbors > 0 && c.Model.MaxNeighbors < c.Model.Neighbors {
		errs = append(errs, fmt.Errorf("model.max_neighbors (%d) is below model.neighbors (%d)",
			c.Model.MaxNeighbors, c.Model.Neighbors))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = fallback
		}
		return []byte(val)
	})
}
