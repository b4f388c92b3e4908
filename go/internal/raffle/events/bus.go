package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Emitter is what the raffle core needs to report presentation events.
// Implementations must not block the caller.
type Emitter interface {
	Emit(sessionID uuid.UUID, eventType EventType, payload interface{})
}

// Sink receives every event dispatched by a Bus.
type Sink interface {
	Publish(ctx context.Context, event *Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event *Event) error

func (f SinkFunc) Publish(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Bus queues events and fans them out to its sinks from a single goroutine,
// so sinks see events in emission order.
type Bus struct {
	ch chan *Event

	mu    sync.RWMutex
	sinks []Sink
}

// NewBus creates a bus with the given queue size.
func NewBus(bufferSize int, sinks ...Sink) *Bus {
	return &Bus{
		ch:    make(chan *Event, bufferSize),
		sinks: sinks,
	}
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit implements Emitter. Events are dropped with a warning when the queue is full.
func (b *Bus) Emit(sessionID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := New(sessionID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}

	select {
	case b.ch <- event:
	default:
		log.Warn().Str("event_type", string(eventType)).Msg("event queue full, dropping event")
	}
}

// Run dispatches queued events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	log.Info().Msg("event bus started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event bus shutting down")
			return
		case event := <-b.ch:
			b.dispatch(ctx, event)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, event *Event) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Msg("sink failed to publish event")
		}
	}
}
