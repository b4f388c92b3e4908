package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/engine"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/session"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
	NewTicker(d time.Duration) clockwork.Ticker
}

// Drawer performs one draw.
type Drawer interface {
	Draw(ctx context.Context) (*models.Winner, error)
}

// Checkpointer persists the session after a state change.
type Checkpointer interface {
	Save(ctx context.Context, snapshot models.RaffleSession)
}

// Config holds the scheduler timings.
type Config struct {
	SettleDelay   time.Duration // pause after a reveal before the countdown starts
	CountdownTick time.Duration // countdown refresh period
}

// DefaultConfig returns the 3s settle delay and 1s countdown tick.
func DefaultConfig() Config {
	return Config{
		SettleDelay:   3 * time.Second,
		CountdownTick: time.Second,
	}
}

// Scheduler drives automatic draws: draw, settle, count down, draw again,
// until the prize pool is empty.
type Scheduler struct {
	session *session.Session
	drawer  Drawer
	store   Checkpointer
	emitter events.Emitter
	clock   Clock
	cfg     Config

	// lifetime of every goroutine the scheduler starts
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	interval time.Duration
	gen      uint64
	drawing  bool
	cycle    *cycle
}

// NewScheduler creates an idle scheduler.
func NewScheduler(sess *session.Session, drawer Drawer, store Checkpointer, emitter events.Emitter, clock Clock, cfg Config) *Scheduler {
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		session: sess,
		drawer:  drawer,
		store:   store,
		emitter: emitter,
		clock:   clock,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
	}
}

// Run blocks until ctx is done, then stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.Close()
	return nil
}

// Close cancels all timers and waits for in-flight work.
func (s *Scheduler) Close() {
	s.cancel()

	s.mu.Lock()
	s.cancelCycleLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

// Status returns the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Phase:    PhaseIdle,
		Interval: s.interval,
		Drawing:  s.drawing,
	}
	switch {
	case s.drawing:
		st.Phase = PhaseDrawing
	case s.cycle != nil:
		st.Phase = s.cycle.phase
		if s.cycle.phase == PhaseCountdown {
			st.SecondsRemaining = countdownPayload(s.cycle.deadline, s.interval, s.clock.Now()).SecondsRemaining
		}
	}
	return st
}

// Start begins automatic drawing with the given interval. The first draw
// happens immediately.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}

	s.state = StateRunning
	s.interval = interval
	_ = s.session.Update(func(st *session.State) error {
		st.Started = true
		st.Paused = false
		st.Interval = interval
		return nil
	})
	s.checkpoint()

	log.Info().
		Str("session_id", s.session.ID().String()).
		Dur("interval", interval).
		Msg("raffle started")
	s.emitter.Emit(s.session.ID(), events.EventTypeRaffleStarted, events.RaffleStartedPayload{
		IntervalMs: interval.Milliseconds(),
		StartedAt:  s.clock.Now(),
	})

	s.launchDrawLocked()
	return nil
}

// Pause stops the countdown and every pending timer.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || s.finishedLocked() {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}

	s.cancelCycleLocked()
	s.state = StatePaused
	s.setPaused(true)

	log.Info().Str("session_id", s.session.ID().String()).Msg("raffle paused")
	s.emitter.Emit(s.session.ID(), events.EventTypeRafflePaused, events.RafflePausedPayload{PausedAt: s.clock.Now()})
	return nil
}

// Resume restarts automatic drawing with a fresh, full-length countdown.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused || s.finishedLocked() {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.state)
	}

	s.state = StateRunning
	s.setPaused(false)

	// A draw still running re-arms the cycle itself when it finishes.
	if !s.drawing && s.cycle == nil {
		s.armCountdownLocked(s.newCycleLocked(PhaseCountdown))
	}

	log.Info().Str("session_id", s.session.ID().String()).Msg("raffle resumed")
	s.emitter.Emit(s.session.ID(), events.EventTypeRaffleResumed, events.RaffleResumedPayload{ResumedAt: s.clock.Now()})
	return nil
}

// TogglePause pauses a running raffle or resumes a paused one.
func (s *Scheduler) TogglePause() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == StatePaused {
		return s.Resume()
	}
	return s.Pause()
}

// Skip cancels the pending wait and draws now. It is ignored while a draw is
// running or when no prizes remain.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning && s.state != StatePaused {
		return fmt.Errorf("%w: skip from %s", ErrInvalidTransition, s.state)
	}
	if s.drawing {
		log.Debug().Msg("skip ignored, draw in progress")
		return nil
	}
	if s.session.Stats().RemainingPrizes == 0 {
		log.Debug().Msg("skip ignored, no prizes left")
		return nil
	}

	log.Info().Str("session_id", s.session.ID().String()).Str("state", string(s.state)).Msg("skipping to next draw")
	s.launchDrawLocked()
	return nil
}

// Restore puts a restored session under the scheduler without drawing.
// The raffle is paused, or complete when nothing is left to draw.
func (s *Scheduler) Restore(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: restore from %s", ErrInvalidTransition, s.state)
	}

	s.interval = interval
	stats := s.session.Stats()
	if stats.RemainingPrizes == 0 || stats.RemainingCandidates == 0 {
		s.state = StateComplete
	} else {
		s.state = StatePaused
	}

	log.Info().
		Str("session_id", s.session.ID().String()).
		Str("state", string(s.state)).
		Int("winners", stats.WinnerCount).
		Msg("session restored")
	return nil
}

// Reset cancels everything and returns to IDLE.
func (s *Scheduler) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing {
		return ErrBusy
	}
	s.cancelCycleLocked()
	s.state = StateIdle
	s.interval = 0
	return nil
}

func (s *Scheduler) setPaused(paused bool) {
	_ = s.session.Update(func(st *session.State) error {
		st.Paused = paused
		return nil
	})
	s.checkpoint()
}

// checkpoint saves the session unless it is finished; a finished session has
// already been cleared by the final draw.
func (s *Scheduler) checkpoint() {
	if stats := s.session.Stats(); stats.RemainingPrizes == 0 || stats.RemainingCandidates == 0 {
		return
	}
	s.store.Save(s.ctx, s.session.Snapshot(s.clock.Now()))
}

// finishedLocked reports whether nothing is left to draw. The final draw can
// empty a pool before afterDraw runs; the scheduler is moved to COMPLETE here
// so commands in that window see the real state.
func (s *Scheduler) finishedLocked() bool {
	stats := s.session.Stats()
	if stats.RemainingPrizes > 0 && stats.RemainingCandidates > 0 {
		return false
	}
	s.cancelCycleLocked()
	s.state = StateComplete
	return true
}

// launchDrawLocked cancels the current cycle and draws in the background.
func (s *Scheduler) launchDrawLocked() {
	s.cancelCycleLocked()
	if s.ctx.Err() != nil {
		return
	}
	s.drawing = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.drawer.Draw(s.ctx)
		s.afterDraw(err)
	}()
}

func (s *Scheduler) afterDraw(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawing = false
	if s.ctx.Err() != nil {
		return
	}

	switch {
	case errors.Is(err, engine.ErrDrawInProgress):
		// The other draw owns the cycle.
		return
	case err != nil && !errors.Is(err, engine.ErrNothingToDraw):
		log.Error().Err(err).Str("session_id", s.session.ID().String()).Msg("draw failed")
	}

	stats := s.session.Stats()
	if stats.RemainingPrizes == 0 || stats.RemainingCandidates == 0 {
		s.cancelCycleLocked()
		s.state = StateComplete
		return
	}

	if s.state == StateRunning && s.cycle == nil {
		s.armSettleLocked()
	}
}

func (s *Scheduler) newCycleLocked(phase Phase) *cycle {
	s.gen++
	c := &cycle{
		gen:   s.gen,
		phase: phase,
		done:  make(chan struct{}),
	}
	s.cycle = c
	return c
}

func (s *Scheduler) cancelCycleLocked() {
	s.gen++
	if s.cycle != nil {
		s.cycle.stop()
		s.cycle = nil
	}
}

func (s *Scheduler) armSettleLocked() {
	c := s.newCycleLocked(PhaseSettling)
	if s.cfg.SettleDelay <= 0 {
		s.armCountdownLocked(c)
		return
	}

	c.settle = s.clock.NewTimer(s.cfg.SettleDelay)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-c.settle.Chan():
			s.mu.Lock()
			defer s.mu.Unlock()
			if c.gen != s.gen || s.state != StateRunning {
				return
			}
			s.armCountdownLocked(c)
		case <-c.done:
		case <-s.ctx.Done():
		}
	}()

	log.Debug().Dur("settle", s.cfg.SettleDelay).Msg("armed settle timer")
}

func (s *Scheduler) armCountdownLocked(c *cycle) {
	now := s.clock.Now()
	c.phase = PhaseCountdown
	c.deadline = now.Add(s.interval)
	c.draw = s.clock.NewTimer(s.interval)
	c.ticker = s.clock.NewTicker(s.cfg.CountdownTick)

	s.emitter.Emit(s.session.ID(), events.EventTypeCountdownTick, countdownPayload(c.deadline, s.interval, now))

	s.wg.Add(1)
	go s.watchCountdown(c)

	log.Debug().
		Time("deadline", c.deadline).
		Dur("interval", s.interval).
		Msg("armed draw timer")
}

func (s *Scheduler) watchCountdown(c *cycle) {
	defer s.wg.Done()
	for {
		select {
		case <-c.ticker.Chan():
			s.mu.Lock()
			if c.gen == s.gen && s.state == StateRunning {
				s.emitter.Emit(s.session.ID(), events.EventTypeCountdownTick, countdownPayload(c.deadline, s.interval, s.clock.Now()))
			}
			s.mu.Unlock()
		case <-c.draw.Chan():
			s.mu.Lock()
			if c.gen == s.gen && s.state == StateRunning && !s.drawing {
				log.Debug().Str("session_id", s.session.ID().String()).Msg("draw timer fired")
				s.launchDrawLocked()
			}
			s.mu.Unlock()
			return
		case <-c.done:
			return
		case <-s.ctx.Done():
			return
		}
	}
}
