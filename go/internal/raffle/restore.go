package raffle

import (
	"context"

	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/orchestrator"
	"github.com/mcdev12/staffraffle/go/internal/raffle/session"
	"github.com/rs/zerolog/log"
)

// Boot looks for a saved session. A started session with something left to
// show puts the app behind the restore prompt; an unstarted one is loaded as
// the imported lists. It reports whether a prompt is pending.
func (a *App) Boot(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	saved := a.store.Load(ctx)
	switch {
	case saved == nil:
		return false

	case saved.Started && (len(saved.PrizePool) == 0 || len(saved.EntrantPool) == 0):
		// A finished raffle whose clear was lost.
		log.Info().
			Str("session_id", saved.SessionID.String()).
			Int("winners", len(saved.Winners)).
			Msg("discarding saved session with nothing left to draw")
		a.store.Clear(ctx)
		return false

	case saved.Resumable():
		a.pending = saved
		log.Info().
			Str("session_id", saved.SessionID.String()).
			Time("saved_at", saved.SavedAt).
			Int("winners", len(saved.Winners)).
			Int("prizes_remaining", len(saved.PrizePool)).
			Msg("saved session found, waiting for operator")
		a.emitter.Emit(saved.SessionID, events.EventTypeSessionRestorePrompt, restorePrompt(saved))
		return true

	case !saved.Started:
		a.session.Restore(*saved)
		_ = a.session.Update(func(st *session.State) error {
			st.Paused = false
			return nil
		})
		log.Info().
			Int("candidates", len(saved.EntrantPool)).
			Int("prizes", len(saved.PrizePool)).
			Msg("loaded imported lists from saved session")
		a.emitter.Emit(a.session.ID(), events.EventTypeStatsChanged, a.session.Stats())
		return false

	default:
		a.store.Clear(ctx)
		return false
	}
}

// ResolveRestore answers the restore prompt. Accepting restores the saved
// session paused; declining clears it and starts fresh.
func (a *App) ResolveRestore(ctx context.Context, accept bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == nil {
		return ErrNoPendingRestore
	}
	saved := *a.pending
	a.pending = nil

	if !accept {
		a.store.Clear(ctx)
		a.session.Reset()
		log.Info().Str("session_id", saved.SessionID.String()).Msg("saved session discarded")
		a.emitter.Emit(a.session.ID(), events.EventTypeStatsChanged, a.session.Stats())
		return nil
	}

	a.session.Restore(saved)
	if err := a.sched.Restore(saved.Interval()); err != nil {
		return err
	}
	a.store.Save(ctx, a.session.Snapshot(a.clock.Now()))

	stats := a.session.Stats()
	log.Info().
		Str("session_id", saved.SessionID.String()).
		Int("winners", stats.WinnerCount).
		Int("prizes_remaining", stats.RemainingPrizes).
		Msg("saved session restored")

	a.emitter.Emit(a.session.ID(), events.EventTypeStatsChanged, stats)
	if stats.WinnerCount > 0 {
		a.emitter.Emit(a.session.ID(), events.EventTypeExportAvailable, events.ExportAvailablePayload{WinnerCount: stats.WinnerCount})
	}
	if a.sched.Status().State == orchestrator.StateComplete {
		a.emitter.Emit(a.session.ID(), events.EventTypeRaffleComplete, events.RaffleCompletePayload{
			WinnerCount: stats.WinnerCount,
			CompletedAt: a.clock.Now(),
		})
		return nil
	}
	a.emitter.Emit(a.session.ID(), events.EventTypeRafflePaused, events.RafflePausedPayload{PausedAt: a.clock.Now()})
	return nil
}

func restorePrompt(saved *models.RaffleSession) events.SessionRestorePromptPayload {
	return events.SessionRestorePromptPayload{
		SavedAt:         saved.SavedAt,
		WinnerCount:     len(saved.Winners),
		PrizesRemaining: len(saved.PrizePool),
	}
}
