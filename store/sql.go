package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// SQLStore is a Store over database/sql.
type SQLStore struct {
	driver string
	open   func(ctx context.Context) (*sql.DB, error)

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// OpenSQLite opens an embedded SQLite database at cfg.DSN, which is a file
// path or ":memory:".
func OpenSQLite(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	cfg.Driver = DriverSQLite
	cfg = cfg.withDefaults()

	dsn := cfg.DSN
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)"
	}
	return newSQLStore(ctx, DriverSQLite, func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		configurePool(db, cfg)
		return db, nil
	})
}

// OpenMySQL opens a MySQL database through gorm and keeps the underlying
// *sql.DB.
func OpenMySQL(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	cfg.Driver = DriverMySQL
	cfg = cfg.withDefaults()

	return newSQLStore(ctx, DriverMySQL, func(ctx context.Context) (*sql.DB, error) {
		gdb, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		db, err := gdb.WithContext(ctx).DB()
		if err != nil {
			return nil, err
		}
		configurePool(db, cfg)
		return db, nil
	})
}

func configurePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}

func newSQLStore(ctx context.Context, driver string, open func(context.Context) (*sql.DB, error)) (*SQLStore, error) {
	db, err := connect(ctx, driver, open)
	if err != nil {
		return nil, err
	}
	return &SQLStore{driver: driver, open: open, db: db}, nil
}

func connect(ctx context.Context, driver string, open func(context.Context) (*sql.DB, error)) (*sql.DB, error) {
	db, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return db, nil
}

// Driver returns the driver name.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Query implements Store.
func (s *SQLStore) Query(ctx context.Context, query string) ([]map[string]any, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec implements Store.
func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Stats returns database/sql pool statistics.
func (s *SQLStore) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Stats()
}

// Restart opens and pings a new pool, swaps it in, and closes the old one.
// On failure the old pool stays in place.
func (s *SQLStore) Restart(ctx context.Context) error {
	if _, err := s.conn(); err != nil {
		return err
	}
	fresh, err := connect(ctx, s.driver, s.open)
	if err != nil {
		return fmt.Errorf("store: restart: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = fresh.Close()
		return ErrClosed
	}
	old := s.db
	s.db = fresh
	s.mu.Unlock()

	return old.Close()
}

// Close releases the pool. Closing twice is a no-op.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
