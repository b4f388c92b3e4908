package engine

import "errors"

var (
	// ErrDrawInProgress is returned when Draw is called while another draw is running.
	ErrDrawInProgress = errors.New("draw already in progress")
	// ErrNothingToDraw is returned when the entrant or prize pool is empty.
	ErrNothingToDraw = errors.New("no entrants or prizes left to draw")
)

// IsNoOp reports whether err means Draw returned without touching any state.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrDrawInProgress) || errors.Is(err, ErrNothingToDraw)
}
