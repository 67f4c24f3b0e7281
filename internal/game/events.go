package game

import (
	"sync"
	"time"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

// EventType names a protocol event.
type EventType string

const (
	EventTypeGameCreated     EventType = "game_created"
	EventTypePlayerJoined    EventType = "player_joined"
	EventTypePlayerLeft      EventType = "player_left"
	EventTypeStackToppedUp   EventType = "stack_topped_up"
	EventTypeHandCreated     EventType = "hand_created"
	EventTypeEntropyCaptured EventType = "entropy_captured"
	EventTypeActionTaken     EventType = "action_taken"
	EventTypeStreetAdvanced  EventType = "street_advanced"
	EventTypeBoardSubmitted  EventType = "board_submitted"
	EventTypeHandRevealed    EventType = "hand_revealed"
	EventTypeHandClosed      EventType = "hand_closed"
	EventTypeHandVoided      EventType = "hand_voided"
)

func (et EventType) String() string { return string(et) }

// GameEvent is anything observers of a game are told about.
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
	Game() uint64
}

// Header carries the fields every event shares.
type Header struct {
	GameID uint64    `json:"game_id"`
	At     time.Time `json:"-"`
}

func (h Header) Timestamp() time.Time { return h.At }
func (h Header) Game() uint64         { return h.GameID }

// Stamp sets the event time. Decoded events use it, since the time is
// carried outside the payload.
func (h *Header) Stamp(at time.Time) { h.At = at }

type GameCreatedEvent struct {
	Header
	MaxPlayers int          `json:"max_players"`
	SmallBlind chips.Amount `json:"small_blind"`
	BigBlind   chips.Amount `json:"big_blind"`
	BuyIn      chips.Amount `json:"buy_in"`
}

func (GameCreatedEvent) EventType() EventType { return EventTypeGameCreated }

type PlayerJoinedEvent struct {
	Header
	Seat      int              `json:"seat"`
	Address   protocol.Address `json:"address"`
	PublicKey protocol.Hash    `json:"public_key"`
	BuyIn     chips.Amount     `json:"buy_in"`
}

func (PlayerJoinedEvent) EventType() EventType { return EventTypePlayerJoined }

type PlayerLeftEvent struct {
	Header
	Seat    int              `json:"seat"`
	Address protocol.Address `json:"address"`
	CashOut chips.Amount     `json:"cash_out"`
}

func (PlayerLeftEvent) EventType() EventType { return EventTypePlayerLeft }

type StackToppedUpEvent struct {
	Header
	Seat    int              `json:"seat"`
	Address protocol.Address `json:"address"`
	Amount  chips.Amount     `json:"amount"`
}

func (StackToppedUpEvent) EventType() EventType { return EventTypeStackToppedUp }

// HandCreatedEvent is published when a hand is dealt and its session
// anchored.
type HandCreatedEvent struct {
	Header
	HandNumber   uint64             `json:"hand_number"`
	SessionID    uint64             `json:"session_id"`
	Button       int                `json:"button"`
	SmallBlind   int                `json:"small_blind_seat"`
	BigBlind     int                `json:"big_blind_seat"`
	EntropyBlock uint64             `json:"entropy_block"`
	Players      []protocol.Address `json:"players"`
	PublicKeys   []protocol.Hash    `json:"public_keys"`
}

func (HandCreatedEvent) EventType() EventType { return EventTypeHandCreated }

type EntropyCapturedEvent struct {
	Header
	SessionID   uint64        `json:"session_id"`
	EntropyHash protocol.Hash `json:"entropy_hash"`
}

func (EntropyCapturedEvent) EventType() EventType { return EventTypeEntropyCaptured }

// ActionTakenEvent is published for every accepted betting action.
type ActionTakenEvent struct {
	Header
	HandNumber uint64           `json:"hand_number"`
	Seat       int              `json:"seat"`
	Address    protocol.Address `json:"address"`
	Action     string           `json:"action"`
	Amount     chips.Amount     `json:"amount"`
	Moved      chips.Amount     `json:"moved"`
	PotAfter   chips.Amount     `json:"pot_after"`
	State      string           `json:"state"`
}

func (ActionTakenEvent) EventType() EventType { return EventTypeActionTaken }

type StreetAdvancedEvent struct {
	Header
	HandNumber uint64       `json:"hand_number"`
	State      string       `json:"state"`
	Pot        chips.Amount `json:"pot"`
}

func (StreetAdvancedEvent) EventType() EventType { return EventTypeStreetAdvanced }

type BoardSubmittedEvent struct {
	Header
	Address protocol.Address `json:"address"`
	Street  string           `json:"street"`
	Cards   []poker.Card     `json:"cards"`
}

func (BoardSubmittedEvent) EventType() EventType { return EventTypeBoardSubmitted }

type HandRevealedEvent struct {
	Header
	Seat    int              `json:"seat"`
	Address protocol.Address `json:"address"`
	Cards   []poker.Card     `json:"cards"`
	Rank    poker.HandRank   `json:"rank"`
}

func (HandRevealedEvent) EventType() EventType { return EventTypeHandRevealed }

// HandClosedEvent reports a settled hand.
type HandClosedEvent struct {
	Header
	HandNumber  uint64       `json:"hand_number"`
	SessionID   uint64       `json:"session_id"`
	Pot         chips.Amount `json:"pot"`
	Awards      []Award      `json:"awards"`
	Uncontested bool         `json:"uncontested"`
}

func (HandClosedEvent) EventType() EventType { return EventTypeHandClosed }

type HandVoidedEvent struct {
	Header
	HandNumber uint64  `json:"hand_number"`
	SessionID  uint64  `json:"session_id"`
	Reason     string  `json:"reason"`
	Refunds    []Award `json:"refunds"`
}

func (HandVoidedEvent) EventType() EventType { return EventTypeHandVoided }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus delivers events synchronously, in publish order.
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := append([]EventSubscriber(nil), bus.subscribers...)
	bus.mu.RUnlock()
	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}

// EventRecorder keeps every event it sees. Useful for tests and replays.
type EventRecorder struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *EventRecorder) OnEvent(event GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded.
func (r *EventRecorder) Events() []GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GameEvent(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *EventRecorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}
