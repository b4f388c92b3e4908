// Package eventstest records raffle events for assertions in tests.
package eventstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
)

// Recorded is one event captured by a Recorder.
type Recorded struct {
	SessionID uuid.UUID
	Type      events.EventType
	Payload   interface{}
}

// Recorder is a synchronous Emitter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(sessionID uuid.UUID, eventType events.EventType, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{SessionID: sessionID, Type: eventType, Payload: payload})
}

// Publish implements events.Sink so a recorder can also sit behind a Bus.
func (r *Recorder) Publish(_ context.Context, event *events.Event) error {
	payload, err := Decode(event)
	if err != nil {
		return err
	}
	id, _ := uuid.Parse(event.SessionID)
	r.Emit(id, event.Type, payload)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order, skipping ephemeral ones.
func (r *Recorder) Types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.EventType
	for _, e := range r.events {
		if e.Type.Ephemeral() {
			continue
		}
		out = append(out, e.Type)
	}
	return out
}

// Count returns how many events of the given type were recorded.
func (r *Recorder) Count(eventType events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Last returns the payload of the most recent event of the given type.
func (r *Recorder) Last(eventType events.EventType) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i].Payload, true
		}
	}
	return nil, false
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Decode unmarshals the event data into a pointer to the payload type matching its Type.
func Decode(event *events.Event) (interface{}, error) {
	var payload interface{}
	switch event.Type {
	case events.EventTypeDrawStarted:
		payload = &events.DrawStartedPayload{}
	case events.EventTypeRevealTick:
		payload = &events.RevealTickPayload{}
	case events.EventTypeWinnerRevealed:
		payload = &events.WinnerRevealedPayload{}
	case events.EventTypeStatsChanged:
		payload = &events.StatsChangedPayload{}
	case events.EventTypeCountdownTick:
		payload = &events.CountdownTickPayload{}
	case events.EventTypeExportAvailable:
		payload = &events.ExportAvailablePayload{}
	case events.EventTypeRaffleComplete:
		payload = &events.RaffleCompletePayload{}
	case events.EventTypeSessionRestorePrompt:
		payload = &events.SessionRestorePromptPayload{}
	case events.EventTypeRaffleStarted:
		payload = &events.RaffleStartedPayload{}
	case events.EventTypeRafflePaused:
		payload = &events.RafflePausedPayload{}
	case events.EventTypeRaffleResumed:
		payload = &events.RaffleResumedPayload{}
	case events.EventTypeRaffleReset:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
	}
	return payload, nil
}
