package events

import (
	"time"

	"github.com/mcdev12/staffraffle/go/internal/models"
)

// Event payload types shared by the engine, scheduler, app and gateway.

// DrawStartedPayload is the payload for a DrawStarted event
type DrawStartedPayload struct {
	RemainingCandidates int       `json:"remaining_candidates"`
	RemainingPrizes     int       `json:"remaining_prizes"`
	StartedAt           time.Time `json:"started_at"`
}

// RevealTickPayload carries the name currently shown by the slot machine
type RevealTickPayload struct {
	Name string `json:"name"`
}

// WinnerRevealedPayload is the payload for a WinnerRevealed event
type WinnerRevealedPayload struct {
	Winner models.Winner `json:"winner"`
}

// StatsChangedPayload is the payload for a StatsChanged event
type StatsChangedPayload = models.Stats

// CountdownTickPayload is emitted once per second while waiting for the next draw
type CountdownTickPayload struct {
	SecondsRemaining int     `json:"seconds_remaining"`
	Progress         float64 `json:"progress"`
}

// ExportAvailablePayload is emitted once the winners list is non-empty
type ExportAvailablePayload struct {
	WinnerCount int `json:"winner_count"`
}

// RaffleCompletePayload is the payload for a RaffleComplete event
type RaffleCompletePayload struct {
	WinnerCount int       `json:"winner_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionRestorePromptPayload asks the operator whether to resume a saved session
type SessionRestorePromptPayload struct {
	SavedAt         time.Time `json:"saved_at"`
	WinnerCount     int       `json:"winner_count"`
	PrizesRemaining int       `json:"prizes_remaining"`
}

// RaffleStartedPayload is the payload for a RaffleStarted event
type RaffleStartedPayload struct {
	IntervalMs int64     `json:"interval_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// RafflePausedPayload is the payload for a RafflePaused event
type RafflePausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
}

// RaffleResumedPayload is the payload for a RaffleResumed event
type RaffleResumedPayload struct {
	ResumedAt time.Time `json:"resumed_at"`
}
