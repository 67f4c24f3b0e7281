package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lox/fairpoker/internal/game"
)

// Envelope is the wire form of a game event on the feed.
type Envelope struct {
	ID     string          `json:"id"`
	Type   game.EventType  `json:"type"`
	Time   time.Time       `json:"time"`
	GameID uint64          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

// NewEnvelope wraps an event with a time-ordered UUIDv7 id.
func NewEnvelope(ev game.GameEvent) (Envelope, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("event id: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return Envelope{
		ID:     id.String(),
		Type:   ev.EventType(),
		Time:   ev.Timestamp().UTC(),
		GameID: ev.Game(),
		Data:   data,
	}, nil
}

// Event decodes the payload back into its concrete event type.
func (env Envelope) Event() (game.GameEvent, error) {
	switch env.Type {
	case game.EventTypeGameCreated:
		return decode[game.GameCreatedEvent](env)
	case game.EventTypePlayerJoined:
		return decode[game.PlayerJoinedEvent](env)
	case game.EventTypePlayerLeft:
		return decode[game.PlayerLeftEvent](env)
	case game.EventTypeStackToppedUp:
		return decode[game.StackToppedUpEvent](env)
	case game.EventTypeHandCreated:
		return decode[game.HandCreatedEvent](env)
	case game.EventTypeEntropyCaptured:
		return decode[game.EntropyCapturedEvent](env)
	case game.EventTypeActionTaken:
		return decode[game.ActionTakenEvent](env)
	case game.EventTypeStreetAdvanced:
		return decode[game.StreetAdvancedEvent](env)
	case game.EventTypeBoardSubmitted:
		return decode[game.BoardSubmittedEvent](env)
	case game.EventTypeHandRevealed:
		return decode[game.HandRevealedEvent](env)
	case game.EventTypeHandClosed:
		return decode[game.HandClosedEvent](env)
	case game.EventTypeHandVoided:
		return decode[game.HandVoidedEvent](env)
	}
	return nil, fmt.Errorf("unknown event type %q", env.Type)
}

func decode[T game.GameEvent](env Envelope) (game.GameEvent, error) {
	var ev T
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if s, ok := any(&ev).(interface{ Stamp(time.Time) }); ok {
		s.Stamp(env.Time)
	}
	return ev, nil
}
