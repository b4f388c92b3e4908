package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/staffraffle/go/internal/models"
)

// DefaultKey is the key the single raffle session is stored under.
const DefaultKey = "raffle_session"

var (
	// ErrNoSession is returned by Load when nothing has been saved.
	ErrNoSession = errors.New("no saved session")
	// ErrCorrupt is returned by Load when the stored blob cannot be decoded.
	ErrCorrupt = errors.New("saved session is corrupt")
)

// Store persists one raffle session under a fixed key.
type Store interface {
	Save(ctx context.Context, snapshot models.RaffleSession) error
	Load(ctx context.Context) (*models.RaffleSession, error)
	Clear(ctx context.Context) error
}

// PersistenceError wraps a backend failure.
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func encode(snapshot models.RaffleSession) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.RaffleSession, error) {
	var snapshot models.RaffleSession
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &snapshot, nil
}
