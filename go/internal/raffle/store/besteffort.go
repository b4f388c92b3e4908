package store

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/rs/zerolog/log"
)

// BestEffort wraps a Store so persistence failures never interrupt the raffle.
// Failures are logged and reported through Degraded.
type BestEffort struct {
	backend  Store
	degraded atomic.Bool
}

// NewBestEffort wraps backend.
func NewBestEffort(backend Store) *BestEffort {
	return &BestEffort{backend: backend}
}

// Degraded reports whether the last persistence operation failed.
func (b *BestEffort) Degraded() bool {
	return b.degraded.Load()
}

// Save checkpoints the session.
func (b *BestEffort) Save(ctx context.Context, snapshot models.RaffleSession) {
	if err := b.backend.Save(ctx, snapshot); err != nil {
		b.degraded.Store(true)
		log.Warn().
			Err(err).
			Str("session_id", snapshot.SessionID.String()).
			Int("winners", len(snapshot.Winners)).
			Msg("session checkpoint failed")
		return
	}
	b.degraded.Store(false)
}

// Load returns the saved session, or nil when there is none or it cannot be read.
func (b *BestEffort) Load(ctx context.Context) *models.RaffleSession {
	snapshot, err := b.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil
	case err != nil:
		b.degraded.Store(true)
		log.Warn().Err(err).Msg("could not load saved session, starting fresh")
		return nil
	}
	b.degraded.Store(false)
	return snapshot
}

// Clear removes the saved session.
func (b *BestEffort) Clear(ctx context.Context) {
	if err := b.backend.Clear(ctx); err != nil {
		b.degraded.Store(true)
		log.Warn().Err(err).Msg("could not clear saved session")
		return
	}
	b.degraded.Store(false)
}
