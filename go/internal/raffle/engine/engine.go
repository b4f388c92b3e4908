package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/session"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Checkpointer persists the session. Failures are handled by the implementation.
type Checkpointer interface {
	Save(ctx context.Context, snapshot models.RaffleSession)
	Clear(ctx context.Context)
}

// Engine performs draws against the shared session.
type Engine struct {
	session *session.Session
	store   Checkpointer
	emitter events.Emitter
	clock   Clock
	cfg     Config

	drawing atomic.Bool
}

// NewEngine creates a draw engine.
func NewEngine(sess *session.Session, store Checkpointer, emitter events.Emitter, clock Clock, cfg Config) *Engine {
	return &Engine{
		session: sess,
		store:   store,
		emitter: emitter,
		clock:   clock,
		cfg:     cfg,
	}
}

// Drawing reports whether a draw is running.
func (e *Engine) Drawing() bool {
	return e.drawing.Load()
}

// Draw runs the reveal animation, then picks one candidate and one prize,
// removes them from their pools and records the winner.
// ErrDrawInProgress and ErrNothingToDraw mean nothing changed.
func (e *Engine) Draw(ctx context.Context) (*models.Winner, error) {
	if !e.drawing.CompareAndSwap(false, true) {
		return nil, ErrDrawInProgress
	}
	defer e.drawing.Store(false)

	stats := e.session.Stats()
	if stats.RemainingCandidates == 0 || stats.RemainingPrizes == 0 {
		return nil, ErrNothingToDraw
	}

	sessionID := e.session.ID()
	e.emitter.Emit(sessionID, events.EventTypeDrawStarted, events.DrawStartedPayload{
		RemainingCandidates: stats.RemainingCandidates,
		RemainingPrizes:     stats.RemainingPrizes,
		StartedAt:           e.clock.Now(),
	})

	if err := e.reveal(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("reveal interrupted: %w", err)
	}

	var winner models.Winner
	err := e.session.Update(func(st *session.State) error {
		if st.Entrants.Size() == 0 || st.Prizes.Size() == 0 {
			return ErrNothingToDraw
		}

		// Two independent picks, made only after the animation finished.
		candidateIdx, err := st.Entrants.PickRandomIndex()
		if err != nil {
			return err
		}
		prizeIdx, err := st.Prizes.PickRandomIndex()
		if err != nil {
			return err
		}

		candidate, err := st.Entrants.RemoveAt(candidateIdx)
		if err != nil {
			return err
		}
		prize, err := st.Prizes.RemoveAt(prizeIdx)
		if err != nil {
			return err
		}

		winner = models.NewWinner(candidate, prize, len(st.Winners)+1, e.clock.Now())
		st.Winners = append(st.Winners, winner)
		stats = st.Stats()
		return nil
	})
	if err != nil {
		return nil, err
	}

	persistCtx := context.WithoutCancel(ctx)
	e.store.Save(persistCtx, e.session.Snapshot(e.clock.Now()))

	log.Info().
		Str("session_id", sessionID.String()).
		Int("number", winner.Number).
		Str("name", winner.Name).
		Str("prize", winner.Prize).
		Int("remaining_prizes", stats.RemainingPrizes).
		Msg("winner drawn")

	e.emitter.Emit(sessionID, events.EventTypeWinnerRevealed, events.WinnerRevealedPayload{Winner: winner})
	e.emitter.Emit(sessionID, events.EventTypeStatsChanged, stats)
	e.emitter.Emit(sessionID, events.EventTypeExportAvailable, events.ExportAvailablePayload{WinnerCount: stats.WinnerCount})

	if stats.RemainingPrizes == 0 || stats.RemainingCandidates == 0 {
		log.Info().
			Str("session_id", sessionID.String()).
			Int("winners", stats.WinnerCount).
			Msg("raffle complete")
		e.emitter.Emit(sessionID, events.EventTypeRaffleComplete, events.RaffleCompletePayload{
			WinnerCount: stats.WinnerCount,
			CompletedAt: e.clock.Now(),
		})
		e.store.Clear(persistCtx)
	}

	return &winner, nil
}

// reveal shows random names from the remaining pool following revealSchedule.
func (e *Engine) reveal(ctx context.Context, sessionID uuid.UUID) error {
	for _, wait := range revealSchedule(e.cfg) {
		var name string
		_ = e.session.Update(func(st *session.State) error {
			idx, err := st.Entrants.PickRandomIndex()
			if err != nil {
				return err
			}
			c, err := st.Entrants.At(idx)
			name = c.Name
			return err
		})
		e.emitter.Emit(sessionID, events.EventTypeRevealTick, events.RevealTickPayload{Name: name})

		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := e.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
