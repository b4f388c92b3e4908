package raffle

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/engine"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/importer"
	"github.com/mcdev12/staffraffle/go/internal/raffle/orchestrator"
	"github.com/mcdev12/staffraffle/go/internal/raffle/pool"
	"github.com/mcdev12/staffraffle/go/internal/raffle/session"
	"github.com/rs/zerolog/log"
)

// SessionStore is what the app needs from persistence. Failures are handled
// inside the implementation.
type SessionStore interface {
	Save(ctx context.Context, snapshot models.RaffleSession)
	Load(ctx context.Context) *models.RaffleSession
	Clear(ctx context.Context)
	Degraded() bool
}

// Config bundles the timing settings of the engine and scheduler.
type Config struct {
	Engine    engine.Config
	Scheduler orchestrator.Config
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Engine:    engine.DefaultConfig(),
		Scheduler: orchestrator.DefaultConfig(),
	}
}

// App is the operator-facing controller. It owns the one raffle session and
// shares it with the draw engine and scheduler.
type App struct {
	session *session.Session
	engine  *engine.Engine
	sched   *orchestrator.Scheduler
	store   SessionStore
	emitter events.Emitter
	clock   clockwork.Clock

	// mu serializes operator commands.
	mu      sync.Mutex
	pending *models.RaffleSession
}

// NewApp wires a session, engine and scheduler together.
func NewApp(store SessionStore, emitter events.Emitter, clock clockwork.Clock, cfg Config) *App {
	sess := session.New()
	eng := engine.NewEngine(sess, store, emitter, clock, cfg.Engine)
	return &App{
		session: sess,
		engine:  eng,
		sched:   orchestrator.NewScheduler(sess, eng, store, emitter, clock, cfg.Scheduler),
		store:   store,
		emitter: emitter,
		clock:   clock,
	}
}

// Run blocks until ctx is done and stops all timers.
func (a *App) Run(ctx context.Context) error {
	return a.sched.Run(ctx)
}

// Close stops all timers and waits for a running draw to return.
func (a *App) Close() {
	a.sched.Close()
}

// ImportCandidates replaces the staff list. Only allowed before the raffle starts.
func (a *App) ImportCandidates(ctx context.Context, rows []importer.Row) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkImportable(); err != nil {
		return 0, err
	}

	candidates := importer.ParseCandidates(rows)
	_ = a.session.Update(func(st *session.State) error {
		st.Entrants = pool.New(candidates)
		return nil
	})
	a.afterImport(ctx, "candidates", len(candidates))
	return len(candidates), nil
}

// ImportCandidatesCSV reads a CSV upload and imports it. A malformed upload
// leaves the previous list untouched.
func (a *App) ImportCandidatesCSV(ctx context.Context, r io.Reader, source string) (int, error) {
	rows, err := importer.ReadCSV(r, source)
	if err != nil {
		return 0, err
	}
	return a.ImportCandidates(ctx, rows)
}

// ImportPrizes replaces the prize list. Only allowed before the raffle starts.
func (a *App) ImportPrizes(ctx context.Context, rows []importer.Row) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkImportable(); err != nil {
		return 0, err
	}

	prizes := importer.ParsePrizes(rows)
	_ = a.session.Update(func(st *session.State) error {
		st.Prizes = pool.New(prizes)
		return nil
	})
	a.afterImport(ctx, "prizes", len(prizes))
	return len(prizes), nil
}

// ImportPrizesCSV reads a CSV upload and imports it.
func (a *App) ImportPrizesCSV(ctx context.Context, r io.Reader, source string) (int, error) {
	rows, err := importer.ReadCSV(r, source)
	if err != nil {
		return 0, err
	}
	return a.ImportPrizes(ctx, rows)
}

func (a *App) checkImportable() error {
	if a.pending != nil {
		return ErrRestorePending
	}
	if state := a.sched.Status().State; state != orchestrator.StateIdle {
		return fmt.Errorf("%w: import while %s", orchestrator.ErrInvalidTransition, state)
	}
	return nil
}

func (a *App) afterImport(ctx context.Context, list string, count int) {
	a.store.Save(ctx, a.session.Snapshot(a.clock.Now()))

	log.Info().
		Str("session_id", a.session.ID().String()).
		Str("list", list).
		Int("count", count).
		Msg("imported list")
	a.emitter.Emit(a.session.ID(), events.EventTypeStatsChanged, a.session.Stats())
}

// Start begins automatic drawing. Both lists must be non-empty.
func (a *App) Start(interval time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		return ErrRestorePending
	}
	stats := a.session.Stats()
	if stats.RemainingCandidates == 0 || stats.RemainingPrizes == 0 {
		return ErrNotReady
	}
	return a.sched.Start(interval)
}

// Pause stops automatic drawing.
func (a *App) Pause() error {
	return a.command(a.sched.Pause)
}

// Resume restarts automatic drawing with a full countdown.
func (a *App) Resume() error {
	return a.command(a.sched.Resume)
}

// TogglePause flips between running and paused.
func (a *App) TogglePause() error {
	return a.command(a.sched.TogglePause)
}

// Skip draws now instead of waiting for the countdown.
func (a *App) Skip() error {
	return a.command(a.sched.Skip)
}

func (a *App) command(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		return ErrRestorePending
	}
	return fn()
}

// Reset discards the session, including its saved copy, and returns to IDLE.
func (a *App) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		return ErrRestorePending
	}
	if err := a.sched.Reset(); err != nil {
		return err
	}

	oldID := a.session.ID()
	a.store.Clear(ctx)
	a.session.Reset()

	log.Info().
		Str("old_session_id", oldID.String()).
		Str("session_id", a.session.ID().String()).
		Msg("raffle reset")
	a.emitter.Emit(oldID, events.EventTypeRaffleReset, nil)
	a.emitter.Emit(a.session.ID(), events.EventTypeStatsChanged, a.session.Stats())
	return nil
}

// Export writes the winners as CSV and returns the download file name.
func (a *App) Export(w io.Writer) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		return "", ErrRestorePending
	}

	var winners models.Winners
	a.session.View(func(st *session.State) {
		winners = make(models.Winners, len(st.Winners))
		copy(winners, st.Winners)
	})
	if len(winners) == 0 {
		return "", ErrNoWinners
	}

	if err := importer.WriteCSV(w, importer.ExportRows(winners)); err != nil {
		return "", fmt.Errorf("failed to export winners: %w", err)
	}
	return importer.Filename(a.clock.Now()), nil
}

// View is a read-only picture of the raffle for clients.
type View struct {
	SessionID      uuid.UUID           `json:"session_id"`
	Status         orchestrator.Status `json:"status"`
	Stats          models.Stats        `json:"stats"`
	Candidates     []models.Candidate  `json:"candidates"`
	Prizes         []models.Prize      `json:"prizes"`
	Winners        models.Winners      `json:"winners"`
	RecentWinners  models.Winners      `json:"recent_winners"`
	Ready          bool                `json:"ready"`
	RestorePending bool                `json:"restore_pending"`
	StoreDegraded  bool                `json:"store_degraded"`

	// RestorePrompt describes the saved session while RestorePending is set.
	RestorePrompt *events.SessionRestorePromptPayload `json:"restore_prompt,omitempty"`
}

// State returns the current view. It is available while a restore is pending.
func (a *App) State() View {
	a.mu.Lock()
	var prompt *events.SessionRestorePromptPayload
	if a.pending != nil {
		p := restorePrompt(a.pending)
		prompt = &p
	}
	a.mu.Unlock()

	v := View{
		SessionID:      a.session.ID(),
		Status:         a.sched.Status(),
		RestorePending: prompt != nil,
		RestorePrompt:  prompt,
		StoreDegraded:  a.store.Degraded(),
	}
	a.session.View(func(st *session.State) {
		v.Stats = st.Stats()
		v.Candidates = st.Entrants.Items()
		v.Prizes = st.Prizes.Items()
		v.Winners = make(models.Winners, len(st.Winners))
		copy(v.Winners, st.Winners)
	})
	v.RecentWinners = v.Winners.Latest()
	v.Ready = v.Stats.RemainingCandidates > 0 && v.Stats.RemainingPrizes > 0
	return v
}
