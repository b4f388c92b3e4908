package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// collector is a Sink that keeps every event it is handed.
type collector struct {
	mu     sync.Mutex
	events []*Event
}

func (c *collector) Publish(_ context.Context, event *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *collector) snapshot() []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Event(nil), c.events...)
}

func TestBus_DispatchesInOrderToAllSinks(t *testing.T) {
	first := &collector{}
	second := &collector{}
	failing := SinkFunc(func(ctx context.Context, event *Event) error {
		return errors.New("sink down")
	})
	bus := NewBus(16, first, failing)
	bus.Subscribe(second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	id := uuid.New()
	bus.Emit(id, EventTypeDrawStarted, DrawStartedPayload{RemainingCandidates: 3, RemainingPrizes: 2})
	bus.Emit(id, EventTypeRevealTick, RevealTickPayload{Name: "Ana"})
	bus.Emit(id, EventTypeStatsChanged, StatsChangedPayload{RemainingCandidates: 2, RemainingPrizes: 1, WinnerCount: 1})

	deadline := time.After(time.Second)
	for len(second.snapshot()) < 3 {
		select {
		case <-deadline:
			t.Fatal("events were not dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	for _, c := range []*collector{first, second} {
		got := c.snapshot()
		if len(got) != 3 {
			t.Fatalf("collected %d events, want 3", len(got))
		}
		if got[0].Type != EventTypeDrawStarted || got[1].Type != EventTypeRevealTick || got[2].Type != EventTypeStatsChanged {
			t.Errorf("unexpected order: %v %v %v", got[0].Type, got[1].Type, got[2].Type)
		}
		if got[0].SessionID != id.String() {
			t.Errorf("session id = %s, want %s", got[0].SessionID, id)
		}
		var tick RevealTickPayload
		if err := json.Unmarshal(got[1].Data, &tick); err != nil || tick.Name != "Ana" {
			t.Errorf("reveal tick data = %s (%v)", got[1].Data, err)
		}
	}
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	bus := NewBus(1)
	bus.Emit(uuid.New(), EventTypeRaffleReset, struct{}{})
	bus.Emit(uuid.New(), EventTypeRaffleReset, struct{}{})

	if got := len(bus.ch); got != 1 {
		t.Errorf("queue length = %d, want 1", got)
	}
}
