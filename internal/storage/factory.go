package storage

import "fmt"

// Driver names a Store implementation.
type Driver string

const (
	// DriverSQLite stores recipes in a local SQLite file (default).
	DriverSQLite Driver = "sqlite"
	// DriverRedis stores recipes in Redis.
	DriverRedis Driver = "redis"
)

// Options selects and configures a Store.
type Options struct {
	Driver       string
	DatabasePath string
	Redis        RedisConfig
}

// NewStore creates a store of the requested driver.
// Supported drivers: "sqlite" (default), "redis".
func NewStore(opts Options) (Store, error) {
	switch Driver(opts.Driver) {
	case DriverSQLite, "":
		return NewSQLiteStore(opts.DatabasePath)
	case DriverRedis:
		return NewRedisStore(opts.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: sqlite, redis)", opts.Driver)
	}
}
