package orchestrator

import (
	"errors"
	"time"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateComplete State = "COMPLETE"
)

// Phase describes what the scheduler is waiting on right now.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSettling  Phase = "settling"
	PhaseCountdown Phase = "countdown"
	PhaseDrawing   Phase = "drawing"
)

var (
	// ErrInvalidTransition is returned when a command is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidInterval is returned when Start is called with a non-positive interval.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrBusy is returned by Reset while a draw is running.
	ErrBusy = errors.New("draw in progress")
)

// Status is a point-in-time view of the scheduler.
type Status struct {
	State            State         `json:"state"`
	Phase            Phase         `json:"phase"`
	Interval         time.Duration `json:"interval"`
	SecondsRemaining int           `json:"seconds_remaining"`
	Drawing          bool          `json:"drawing"`
}
