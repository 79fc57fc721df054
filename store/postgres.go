package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is a Store over a pgx connection pool.
type PGStore struct {
	config *pgxpool.Config

	mu     sync.RWMutex
	pool   *pgxpool.Pool
	closed bool
}

// OpenPostgres parses cfg.DSN, creates a pool and pings it.
func OpenPostgres(ctx context.Context, cfg Config) (*PGStore, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	cfg.Driver = DriverPostgres
	cfg = cfg.withDefaults()

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	pcfg.MaxConns = int32(cfg.MaxOpenConns)
	pcfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PGStore{config: pcfg, pool: pool}, nil
}

func newPool(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg.Copy())
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return pool, nil
}

func (s *PGStore) conn() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.pool, nil
}

// Query implements Store.
func (s *PGStore) Query(ctx context.Context, query string) ([]map[string]any, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = normalize(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec implements Store.
func (s *PGStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	pool, err := s.conn()
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping implements Store.
func (s *PGStore) Ping(ctx context.Context) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Stat returns pool statistics.
func (s *PGStore) Stat() *pgxpool.Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.Stat()
}

// Restart builds a new pool from the original config, swaps it in, and
// closes the old pool. On failure the old pool stays in place.
func (s *PGStore) Restart(ctx context.Context) error {
	if _, err := s.conn(); err != nil {
		return err
	}
	fresh, err := newPool(ctx, s.config)
	if err != nil {
		return fmt.Errorf("store: restart: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fresh.Close()
		return ErrClosed
	}
	old := s.pool
	s.pool = fresh
	s.mu.Unlock()

	old.Close()
	return nil
}

// Close releases the pool. Closing twice is a no-op.
func (s *PGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.pool.Close()
	}
	return nil
}
