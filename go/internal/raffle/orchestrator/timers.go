package orchestrator

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
)

// cycle is one armed wait between two draws. Everything in it is cancelled
// together; gen ties it to the scheduler generation it was armed in.
type cycle struct {
	gen      uint64
	phase    Phase
	done     chan struct{}
	settle   clockwork.Timer
	draw     clockwork.Timer
	ticker   clockwork.Ticker
	deadline time.Time
}

func (c *cycle) stop() {
	close(c.done)
	if c.settle != nil {
		stopAndDrainTimer(c.settle)
	}
	if c.draw != nil {
		stopAndDrainTimer(c.draw)
	}
	if c.ticker != nil {
		c.ticker.Stop()
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so a late fire
// cannot be observed by a new watcher.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// countdownPayload computes the countdown shown to the operator.
// Seconds are rounded up and never negative; progress is clamped to [0,1].
func countdownPayload(deadline time.Time, total time.Duration, now time.Time) events.CountdownTickPayload {
	remaining := deadline.Sub(now)

	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	progress := 1.0
	if total > 0 {
		progress = float64(total-remaining) / float64(total)
	}
	progress = math.Max(0, math.Min(1, progress))

	return events.CountdownTickPayload{
		SecondsRemaining: seconds,
		Progress:         progress,
	}
}
