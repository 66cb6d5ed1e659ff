// Package postgres provides the Postgres-backed fellowship store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

const defaultTable = "fellowships"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for fellowship rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// Store keeps one row per apply link.
type Store struct {
	pool  pool
	table string
	ids   crawler.IDGenerator
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config, ids crawler.IDGenerator) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table, ids)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, ids crawler.IDGenerator) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table, ids: ids}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the fellowship table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	apply_link TEXT NOT NULL,
	name TEXT NOT NULL,
	deadline TEXT NOT NULL,
	trust_score INTEGER NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL,
	CONSTRAINT %s_apply_link_key UNIQUE (apply_link)
)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_last_updated_idx ON %s (last_updated DESC)`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts the record or overwrites every field but the id of the row
// already holding its apply link. The statement is atomic per key.
func (s *Store) Upsert(ctx context.Context, record crawler.FellowshipRecord) error {
	if record.ApplyLink == "" {
		return errors.New("apply link is required")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	apply_link,
	name,
	deadline,
	trust_score,
	last_updated
) VALUES (
	$1,$2,$3,$4,$5,$6
)
ON CONFLICT (apply_link) DO UPDATE SET
	name = EXCLUDED.name,
	deadline = EXCLUDED.deadline,
	trust_score = EXCLUDED.trust_score,
	last_updated = EXCLUDED.last_updated`, s.table)

	args := []any{
		id,
		record.ApplyLink,
		record.Name,
		record.Deadline,
		record.TrustScore,
		record.LastUpdated,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fellowship: %w", err)
	}
	return nil
}

// List returns up to limit records, most recently updated first.
func (s *Store) List(ctx context.Context, limit int) ([]crawler.StoredFellowship, error) {
	query := fmt.Sprintf(`
SELECT id::text, apply_link, name, deadline, trust_score, last_updated
FROM %s
ORDER BY last_updated DESC
LIMIT $1`, s.table)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list fellowships: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanFellowship)
	if err != nil {
		return nil, fmt.Errorf("scan fellowships: %w", err)
	}
	return records, nil
}

func scanFellowship(row pgx.CollectableRow) (crawler.StoredFellowship, error) {
	var f crawler.StoredFellowship
	err := row.Scan(&f.ID, &f.ApplyLink, &f.Name, &f.Deadline, &f.TrustScore, &f.LastUpdated)
	f.LastUpdated = f.LastUpdated.UTC()
	return f, err
}
