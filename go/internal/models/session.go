package models

import (
	"time"

	"github.com/google/uuid"
)

// RaffleSession is the full persisted raffle state.
type RaffleSession struct {
	SessionID   uuid.UUID   `json:"session_id"`
	EntrantPool []Candidate `json:"entrant_pool"`
	PrizePool   []Prize     `json:"prize_pool"`
	Winners     Winners     `json:"winners"`
	Paused      bool        `json:"paused"`
	IntervalMs  int64       `json:"interval_ms"`
	Started     bool        `json:"started"`
	SavedAt     time.Time   `json:"saved_at"`
}

// Interval returns the auto-draw interval as a duration.
func (s RaffleSession) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// Resumable reports whether a persisted session is worth offering to the operator.
func (s RaffleSession) Resumable() bool {
	return s.Started && (len(s.PrizePool) > 0 || len(s.Winners) > 0)
}

// InitialEntrantCount is the entrant count the session was started with.
func (s RaffleSession) InitialEntrantCount() int {
	return len(s.EntrantPool) + len(s.Winners)
}

// InitialPrizeCount is the prize count the session was started with.
func (s RaffleSession) InitialPrizeCount() int {
	return len(s.PrizePool) + len(s.Winners)
}

// Stats is the counter triple shown on the raffle screen.
type Stats struct {
	RemainingCandidates int `json:"remaining_candidates"`
	RemainingPrizes     int `json:"remaining_prizes"`
	WinnerCount         int `json:"winner_count"`
}
