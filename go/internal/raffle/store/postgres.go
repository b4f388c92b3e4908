package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// PostgresStore keeps the session as a jsonb row.
type PostgresStore struct {
	db  *sql.DB
	key string
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn, key string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresStore(db, key), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB, key string) *PostgresStore {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresStore{db: db, key: key}
}

// EnsureSchema creates the sessions table when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	err := sqlutil.Run(ctx, p.db, func(tx *sql.Tx) error {
		return sqlutil.ExecAll(ctx, tx,
			`CREATE TABLE IF NOT EXISTS raffle_sessions (
				key TEXT PRIMARY KEY,
				payload JSONB NOT NULL,
				saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS raffle_sessions_saved_at_idx ON raffle_sessions (saved_at)`,
		)
	})
	if err != nil {
		return p.fail("migrate", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Save(ctx context.Context, snapshot models.RaffleSession) error {
	data, err := encode(snapshot)
	if err != nil {
		return p.fail("save", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO raffle_sessions (key, payload, saved_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at
	`, p.key, pqtype.NullRawMessage{RawMessage: data, Valid: true}, snapshot.SavedAt)
	if err != nil {
		return p.fail("save", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (*models.RaffleSession, error) {
	var payload pqtype.NullRawMessage
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM raffle_sessions WHERE key = $1`, p.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, p.fail("load", err)
	}
	if !payload.Valid {
		return nil, p.fail("load", ErrCorrupt)
	}
	snapshot, err := decode(payload.RawMessage)
	if err != nil {
		return nil, p.fail("load", err)
	}
	return snapshot, nil
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM raffle_sessions WHERE key = $1`, p.key); err != nil {
		return p.fail("clear", err)
	}
	return nil
}

func (p *PostgresStore) fail(op string, err error) error {
	return &PersistenceError{Backend: "postgres", Op: op, Err: err}
}
