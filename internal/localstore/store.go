// Package localstore is the on-device mirror of the client caches. It keeps
// one SQLite table per entity type, keyed by id and indexed by owner.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database and exposes one Table per entity type.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	Users       *Table[domain.User]
	Tasks       *Table[domain.Task]
	Collections *Table[domain.Collection]
	Labels      *Table[domain.Label]
}

var tableNames = []string{"users", "tasks", "collections", "labels"}

// Open initializes the store at dbPath and creates missing tables.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty local store path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.Users = &Table[domain.User]{db: conn, name: "users"}
	s.Tasks = &Table[domain.Task]{db: conn, name: "tasks"}
	s.Collections = &Table[domain.Collection]{db: conn, name: "collections"}
	s.Labels = &Table[domain.Label]{db: conn, name: "labels"}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DeleteByUserID wipes every row owned by userID in all tables.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	for _, name := range tableNames {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+name+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("purge %s: %w", name, err)
		}
	}
	return nil
}

// GetSetting returns the value stored under key, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	for _, name := range tableNames {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS ` + name + ` (
                id TEXT PRIMARY KEY,
                user_id TEXT NOT NULL DEFAULT '',
                data TEXT NOT NULL,
                stored_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
            );`,
			`CREATE INDEX IF NOT EXISTS idx_` + name + `_user ON ` + name + `(user_id);`,
		}
		for _, stmt := range stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
	}
	return nil
}

// Table is the record store of one entity type.
type Table[T domain.Entity[T]] struct {
	db   *sql.DB
	name string
}

// Put inserts or overwrites the record by id.
func (t *Table[T]) Put(ctx context.Context, e T) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.name, err)
	}
	_, err = t.db.ExecContext(ctx, `INSERT INTO `+t.name+`(id, user_id, data) VALUES(?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, data = excluded.data, stored_at = CURRENT_TIMESTAMP`,
		e.GetID(), e.OwnerID(), string(data))
	if err != nil {
		return fmt.Errorf("put %s record: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	var data string
	err := t.db.QueryRowContext(ctx, `SELECT data FROM `+t.name+` WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("get %s record: %w", t.name, err)
	}
	var e T
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return zero, fmt.Errorf("decode %s record: %w", t.name, err)
	}
	return e, nil
}

func (t *Table[T]) GetAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, `SELECT data FROM `+t.name+` ORDER BY rowid`)
}

func (t *Table[T]) GetByUserID(ctx context.Context, userID string) ([]T, error) {
	return t.query(ctx, `SELECT data FROM `+t.name+` WHERE user_id = ? ORDER BY rowid`, userID)
}

// Delete removes the record; deleting an absent id is not an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s record: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", t.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", t.name, err)
		}
		var e T
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", t.name, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
