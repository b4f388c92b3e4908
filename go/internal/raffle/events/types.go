package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of raffle event
type EventType string

const (
	EventTypeDrawStarted          EventType = "DrawStarted"
	EventTypeRevealTick           EventType = "RevealTick"
	EventTypeWinnerRevealed       EventType = "WinnerRevealed"
	EventTypeStatsChanged         EventType = "StatsChanged"
	EventTypeCountdownTick        EventType = "CountdownTick"
	EventTypeExportAvailable      EventType = "ExportAvailable"
	EventTypeRaffleComplete       EventType = "RaffleComplete"
	EventTypeSessionRestorePrompt EventType = "SessionRestorePrompt"
	EventTypeRaffleStarted        EventType = "RaffleStarted"
	EventTypeRafflePaused         EventType = "RafflePaused"
	EventTypeRaffleResumed        EventType = "RaffleResumed"
	EventTypeRaffleReset          EventType = "RaffleReset"
)

// Ephemeral reports whether the event only matters to a live screen.
func (t EventType) Ephemeral() bool {
	return t == EventTypeRevealTick || t == EventTypeCountdownTick
}

// Event is the envelope every presentation event travels in
type Event struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Raffle session UUID
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps payload in an envelope.
func New(sessionID uuid.UUID, eventType EventType, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
