package engine

import "time"

// Config controls the slot-machine reveal that precedes every draw.
type Config struct {
	RevealDuration time.Duration // nominal animation length
	RevealTick     time.Duration // base wait between names
	SlowdownAfter  float64       // fraction of ticks after which each wait grows
}

// DefaultConfig returns the 3s/50ms reveal that slows down over its last 30%.
func DefaultConfig() Config {
	return Config{
		RevealDuration: 3 * time.Second,
		RevealTick:     50 * time.Millisecond,
		SlowdownAfter:  0.7,
	}
}

// revealSchedule returns the wait after each name shown during the reveal.
// Past the slowdown point every tick adds tick*(1+(i-threshold)/10) on top of the
// base tick, so the names decelerate towards the result.
func revealSchedule(cfg Config) []time.Duration {
	if cfg.RevealDuration <= 0 || cfg.RevealTick <= 0 {
		return nil
	}

	iterations := int(cfg.RevealDuration / cfg.RevealTick)
	threshold := float64(iterations) * cfg.SlowdownAfter

	waits := make([]time.Duration, iterations)
	for i := range waits {
		wait := cfg.RevealTick
		if float64(i) > threshold {
			extra := float64(cfg.RevealTick) * (1 + (float64(i)-threshold)/10)
			wait += time.Duration(extra)
		}
		waits[i] = wait
	}
	return waits
}
