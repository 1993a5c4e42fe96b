package config

import "github.com/hyperjump/resep/internal/similarity"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSAllowedOrigins == nil {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeoutSec == 0 {
		cfg.Server.ShutdownTimeoutSec = 10
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/resep/data/recipes.db"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "resep:"
	}
	if cfg.Model.Neighbors == 0 {
		cfg.Model.Neighbors = similarity.DefaultK
	}
	if cfg.Model.MaxNeighbors == 0 {
		cfg.Model.MaxNeighbors = 100
	}
}
