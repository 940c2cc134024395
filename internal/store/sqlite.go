package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/filter"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS saved_filters (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	config      TEXT NOT NULL,
	icon        TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saved_filters_name ON saved_filters(name);
`

// DB wraps a sql.DB with saved-filter operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Save inserts a new saved filter. Saving an existing id is an error.
func (db *DB) Save(ctx context.Context, f SavedFilter) error {
	tagsJSON, configJSON, err := marshalFilter(f)
	if err != nil {
		return err
	}
	m := f.Metadata
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO saved_filters (id, name, description, tags, config, icon, color, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Description, tagsJSON, configJSON, m.Icon, m.Color, m.CreatedAt, m.ModifiedAt)
	if err != nil {
		return fmt.Errorf("store: save filter %s: %w", m.ID, err)
	}
	return nil
}

// GetByID returns the saved filter with the given id, or apperr.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*SavedFilter, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, description, tags, config, icon, color, created_at, modified_at
		FROM saved_filters WHERE id = ?
	`, id)
	f, err := scanFilter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// GetAll returns every saved filter, oldest first.
func (db *DB) GetAll(ctx context.Context) ([]SavedFilter, error) {
	return db.queryFilters(ctx, `
		SELECT id, name, description, tags, config, icon, color, created_at, modified_at
		FROM saved_filters ORDER BY created_at, id
	`)
}

// Update replaces an existing saved filter, or returns apperr.ErrNotFound.
func (db *DB) Update(ctx context.Context, f SavedFilter) error {
	tagsJSON, configJSON, err := marshalFilter(f)
	if err != nil {
		return err
	}
	m := f.Metadata
	res, err := db.conn.ExecContext(ctx, `
		UPDATE saved_filters
		SET name = ?, description = ?, tags = ?, config = ?, icon = ?, color = ?, modified_at = ?
		WHERE id = ?
	`, m.Name, m.Description, tagsJSON, configJSON, m.Icon, m.Color, m.ModifiedAt, m.ID)
	if err != nil {
		return fmt.Errorf("store: update filter %s: %w", m.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes a saved filter, or returns apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM saved_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete filter %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Search returns saved filters whose name, description, or tags contain the
// query substring, case-insensitively.
func (db *DB) Search(ctx context.Context, query string) ([]SavedFilter, error) {
	like := "%" + query + "%"
	return db.queryFilters(ctx, `
		SELECT id, name, description, tags, config, icon, color, created_at, modified_at
		FROM saved_filters
		WHERE name LIKE ? OR description LIKE ? OR tags LIKE ?
		ORDER BY created_at, id
	`, like, like, like)
}

func (db *DB) queryFilters(ctx context.Context, q string, args ...any) ([]SavedFilter, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query filters: %w", err)
	}
	defer rows.Close()

	var out []SavedFilter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func marshalFilter(f SavedFilter) (tagsJSON, configJSON string, err error) {
	tags := f.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	tb, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("store: marshal tags: %w", err)
	}
	cb, err := json.Marshal(f.Config)
	if err != nil {
		return "", "", fmt.Errorf("store: marshal config: %w", err)
	}
	return string(tb), string(cb), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilter(row rowScanner) (*SavedFilter, error) {
	var (
		f          SavedFilter
		tagsJSON   string
		configJSON string
	)
	m := &f.Metadata
	err := row.Scan(&m.ID, &m.Name, &m.Description, &tagsJSON, &configJSON, &m.Icon, &m.Color, &m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan filter: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
		return nil, fmt.Errorf("store: decode tags for %s: %w", m.ID, err)
	}
	var cfg filter.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("store: decode config for %s: %w", m.ID, err)
	}
	f.Config = cfg
	return &f, nil
}
