package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/pool"
)

// State is the mutable raffle state. It is only reachable through Session.Update
// and Session.View so every change happens under the session lock.
type State struct {
	Entrants *pool.Pool[models.Candidate]
	Prizes   *pool.Pool[models.Prize]
	Winners  models.Winners
	Paused   bool
	Started  bool
	Interval time.Duration
}

// Stats returns the remaining/winner counters.
func (st *State) Stats() models.Stats {
	return models.Stats{
		RemainingCandidates: st.Entrants.Size(),
		RemainingPrizes:     st.Prizes.Size(),
		WinnerCount:         len(st.Winners),
	}
}

// Session owns the single raffle state shared by the engine, scheduler and app.
type Session struct {
	mu    sync.Mutex
	id    uuid.UUID
	state State
}

// New returns an empty, not yet started session.
func New() *Session {
	s := &Session{}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.id = uuid.New()
	s.state = State{
		Entrants: pool.New[models.Candidate](nil),
		Prizes:   pool.New[models.Prize](nil),
	}
}

// ID returns the current session identifier.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Update runs fn with exclusive access to the state.
func (s *Session) Update(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// View runs fn with exclusive access to the state; fn must not mutate it.
func (s *Session) View(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Stats returns the current counters.
func (s *Session) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Stats()
}

// Snapshot captures the persisted form of the session.
func (s *Session) Snapshot(savedAt time.Time) models.RaffleSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	winners := make(models.Winners, len(s.state.Winners))
	copy(winners, s.state.Winners)

	return models.RaffleSession{
		SessionID:   s.id,
		EntrantPool: s.state.Entrants.Items(),
		PrizePool:   s.state.Prizes.Items(),
		Winners:     winners,
		Paused:      s.state.Paused,
		IntervalMs:  s.state.Interval.Milliseconds(),
		Started:     s.state.Started,
		SavedAt:     savedAt,
	}
}

// Restore replaces the state with a persisted snapshot. A restored session is
// always paused so the operator has to resume it explicitly.
func (s *Session) Restore(snap models.RaffleSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = snap.SessionID
	if s.id == uuid.Nil {
		s.id = uuid.New()
	}

	winners := make(models.Winners, len(snap.Winners))
	copy(winners, snap.Winners)

	s.state = State{
		Entrants: pool.New(snap.EntrantPool),
		Prizes:   pool.New(snap.PrizePool),
		Winners:  winners,
		Paused:   true,
		Started:  snap.Started,
		Interval: snap.Interval(),
	}
}

// Reset discards everything and starts a fresh, empty session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
