package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/sqlutil"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the session in a local SQLite key/value table.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path, key string) (*SQLiteStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps SQLite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, key: key}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		return sqlutil.ExecAll(ctx, tx, `
			CREATE TABLE IF NOT EXISTS raffle_sessions (
				key TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				saved_at TEXT NOT NULL
			)
		`)
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, snapshot models.RaffleSession) error {
	data, err := encode(snapshot)
	if err != nil {
		return s.fail("save", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raffle_sessions (key, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, s.key, string(data), snapshot.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return s.fail("save", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.RaffleSession, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM raffle_sessions WHERE key = ?`, s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, s.fail("load", err)
	}
	snapshot, err := decode([]byte(payload))
	if err != nil {
		return nil, s.fail("load", err)
	}
	return snapshot, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM raffle_sessions WHERE key = ?`, s.key); err != nil {
		return s.fail("clear", err)
	}
	return nil
}

func (s *SQLiteStore) fail(op string, err error) error {
	return &PersistenceError{Backend: "sqlite", Op: op, Err: err}
}
