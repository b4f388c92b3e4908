package models

import "time"

// Winner is a candidate paired with the prize they were awarded.
// Winners are append-only; Number is the 1-based draw order.
type Winner struct {
	Candidate
	Prize   Prize     `json:"prize"`
	Number  int       `json:"number"`
	DrawnAt time.Time `json:"drawn_at"`
}

// NewWinner builds the winner record for the n-th draw.
func NewWinner(c Candidate, prize Prize, number int, drawnAt time.Time) Winner {
	return Winner{
		Candidate: c,
		Prize:     prize,
		Number:    number,
		DrawnAt:   drawnAt,
	}
}

// Winners is the winners sequence in draw order.
type Winners []Winner

// Latest returns a copy ordered most-recent-first, the way the reveal grid shows them.
func (w Winners) Latest() Winners {
	out := make(Winners, len(w))
	for i := range w {
		out[len(w)-1-i] = w[i]
	}
	return out
}
