package store

import (
	"context"
	"fmt"
	"time"
)

// Store is a relational database the monitor can probe and restart.
//
// Contract:
// - Concurrency: implementations are safe for concurrent use.
// - Errors: operations after Close return ErrClosed.
type Store interface {
	// Query runs a statement and returns every row keyed by column name.
	Query(ctx context.Context, sql string) ([]map[string]any, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	Ping(ctx context.Context) error

	// Restart replaces the connection pool with a fresh one.
	Restart(ctx context.Context) error

	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config selects and configures a store.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	// MaxOpenConns caps pool size.
	// Default: 20 (1 for sqlite)
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle connections; ignored by postgres.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles connections.
	// Default: 1h
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 20
		if c.Driver == DriverSQLite {
			c.MaxOpenConns = 1
		}
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	return c
}

// Open connects to the configured driver and pings it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(ctx, cfg)
	case DriverMySQL:
		return OpenMySQL(ctx, cfg)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// normalize turns driver byte slices into strings so rows encode as JSON
// text and compare naturally.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*PGStore)(nil)
)
