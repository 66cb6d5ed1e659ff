// Package sqlite provides a single-file fellowship store for local runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
)

const defaultTable = "fellowships"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store keeps one row per apply link in a SQLite database.
type Store struct {
	db    *sql.DB
	table string
	ids   crawler.IDGenerator
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path, table string, ids crawler.IDGenerator) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage.sqlite.path is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db, table: table, ids: ids}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// EnsureSchema creates the fellowship table and index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		apply_link TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		deadline TEXT NOT NULL,
		trust_score INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_last_updated ON %[1]s(last_updated);
	`, s.table)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts the record or overwrites the row holding its apply link,
// keeping that row's id.
func (s *Store) Upsert(ctx context.Context, record crawler.FellowshipRecord) error {
	if record.ApplyLink == "" {
		return errors.New("apply link is required")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
	INSERT INTO %s (id, apply_link, name, deadline, trust_score, last_updated)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(apply_link) DO UPDATE SET
		name = excluded.name,
		deadline = excluded.deadline,
		trust_score = excluded.trust_score,
		last_updated = excluded.last_updated`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		id,
		record.ApplyLink,
		record.Name,
		record.Deadline,
		record.TrustScore,
		record.LastUpdated.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert fellowship: %w", err)
	}
	return nil
}

// List returns up to limit records, most recently updated first.
func (s *Store) List(ctx context.Context, limit int) ([]crawler.StoredFellowship, error) {
	query := fmt.Sprintf(`
	SELECT id, apply_link, name, deadline, trust_score, last_updated
	FROM %s
	ORDER BY last_updated DESC, apply_link ASC
	LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list fellowships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []crawler.StoredFellowship
	for rows.Next() {
		var (
			f       crawler.StoredFellowship
			updated int64
		)
		if err := rows.Scan(&f.ID, &f.ApplyLink, &f.Name, &f.Deadline, &f.TrustScore, &updated); err != nil {
			return nil, fmt.Errorf("scan fellowship: %w", err)
		}
		f.LastUpdated = time.Unix(0, updated).UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fellowships: %w", err)
	}
	return out, nil
}
