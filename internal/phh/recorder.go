package phh

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

// Writer receives each finished hand.
type Writer func(*HandHistory) error

// DirWriter writes each hand to dir as game-<id>-hand-<n>.phh.
func DirWriter(dir string) (Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("hand history dir: %w", err)
	}
	return func(h *HandHistory) error {
		data, err := EncodeToBytes(h)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, FileName(h)), data, 0o644)
	}, nil
}

// FileName is the file a hand is written to.
func FileName(h *HandHistory) string {
	return fmt.Sprintf("%s-hand-%s.phh", h.Table, h.HandID)
}

// Recorder builds PHH hand histories from engine events. It subscribes to
// an event bus and hands each settled or voided hand to its Writer.
type Recorder struct {
	mu     sync.Mutex
	write  Writer
	logger *log.Logger
	tables map[uint64]*tableState
}

type tableState struct {
	id         uint64
	maxPlayers int
	smallBlind uint64
	bigBlind   uint64
	stacks     map[int]uint64
	seats      map[protocol.Address]int
	hand       *handState
}

type handState struct {
	history *HandHistory
	seats   []int       // table seats in PHH player order
	player  map[int]int // table seat -> PHH player number
	street  map[int]uint64
	bet     uint64
	boards  map[string][]poker.Card
}

// NewRecorder creates a recorder.
func NewRecorder(write Writer, logger *log.Logger) *Recorder {
	return &Recorder{
		write:  write,
		logger: logger.WithPrefix("phh"),
		tables: make(map[uint64]*tableState),
	}
}

func (r *Recorder) OnEvent(ev game.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[ev.Game()]
	if !ok {
		t = &tableState{id: ev.Game(), stacks: make(map[int]uint64), seats: make(map[protocol.Address]int)}
		r.tables[ev.Game()] = t
	}

	switch e := ev.(type) {
	case game.GameCreatedEvent:
		t.maxPlayers = e.MaxPlayers
		t.smallBlind, t.bigBlind = uint64(e.SmallBlind), uint64(e.BigBlind)

	case game.PlayerJoinedEvent:
		t.stacks[e.Seat] = uint64(e.BuyIn)
		t.seats[e.Address] = e.Seat

	case game.PlayerLeftEvent:
		delete(t.stacks, e.Seat)
		delete(t.seats, e.Address)

	case game.StackToppedUpEvent:
		t.stacks[e.Seat] += uint64(e.Amount)

	case game.HandCreatedEvent:
		t.startHand(e)

	case game.EntropyCapturedEvent:
		if t.hand != nil {
			t.hand.history.Metadata["entropy_hash"] = e.EntropyHash.Hex()
		}

	case game.ActionTakenEvent:
		h := t.hand
		if h == nil {
			return
		}
		t.stacks[e.Seat] -= min(uint64(e.Moved), t.stacks[e.Seat])
		h.street[e.Seat] += uint64(e.Moved)
		raised := h.street[e.Seat] > h.bet
		if raised {
			h.bet = h.street[e.Seat]
		}
		h.history.Actions = append(h.history.Actions, FormatAction(h.player[e.Seat], e.Action, h.street[e.Seat], raised))

	case game.StreetAdvancedEvent:
		if h := t.hand; h != nil {
			h.street = make(map[int]uint64)
			h.bet = 0
		}

	case game.BoardSubmittedEvent:
		h := t.hand
		if h == nil {
			return
		}
		first, seen := h.boards[e.Street]
		switch {
		case !seen:
			h.boards[e.Street] = e.Cards
			h.history.Actions = append(h.history.Actions, "d db "+Cards(e.Cards))
		case !slices.Equal(first, e.Cards):
			// Per-participant boards differ; keep each player's view as a comment.
			h.history.Actions = append(h.history.Actions,
				fmt.Sprintf("# p%d %s %s", h.player[t.seats[e.Address]], e.Street, Cards(e.Cards)))
		}

	case game.HandRevealedEvent:
		if h := t.hand; h != nil {
			h.history.Actions = append(h.history.Actions, fmt.Sprintf("p%d sm %s", h.player[e.Seat], Cards(e.Cards)))
		}

	case game.HandClosedEvent:
		if t.hand == nil {
			return
		}
		t.credit(e.Awards)
		t.finishHand(e.Awards)

	case game.HandVoidedEvent:
		if t.hand == nil {
			return
		}
		t.credit(e.Refunds)
		t.hand.history.Metadata["voided"] = e.Reason
		t.finishHand(nil)
	}

	if h := t.hand; h != nil && h.history.FinishingStacks != nil {
		t.hand = nil
		if err := r.write(h.history); err != nil {
			r.logger.Warn("Failed to write hand history", "game", t.id, "hand", h.history.HandID, "error", err)
		}
	}
}

func (t *tableState) startHand(e game.HandCreatedEvent) {
	var seats []int
	for _, addr := range e.Players {
		if seat, ok := t.seats[addr]; ok {
			seats = append(seats, seat)
		}
	}
	slices.Sort(seats)
	// PHH players start at the small blind.
	if i := slices.Index(seats, e.SmallBlind); i > 0 {
		seats = append(seats[i:], seats[:i]...)
	}

	at := e.Timestamp().UTC()
	h := &handState{
		seats:  seats,
		player: make(map[int]int, len(seats)),
		street: make(map[int]uint64),
		boards: make(map[string][]poker.Card),
		history: &HandHistory{
			Variant:   "NT",
			Table:     fmt.Sprintf("game-%d", t.id),
			SeatCount: t.maxPlayers,
			MinBet:    t.bigBlind,
			HandID:    fmt.Sprintf("%d", e.HandNumber),
			Time:      at.Format("15:04:05"),
			TimeZone:  "UTC",
			Day:       at.Day(),
			Month:     int(at.Month()),
			Year:      at.Year(),
			Timestamp: at,
			Metadata: map[string]any{
				"session_id":    e.SessionID,
				"entropy_block": e.EntropyBlock,
			},
		},
	}

	var keys []string
	for i, seat := range seats {
		h.player[seat] = i + 1
		h.history.Seats = append(h.history.Seats, seat+1)
		h.history.Antes = append(h.history.Antes, 0)
		h.history.StartingStacks = append(h.history.StartingStacks, t.stacks[seat])
		var blind uint64
		switch seat {
		case e.SmallBlind:
			blind = min(t.smallBlind, t.stacks[seat])
		case e.BigBlind:
			blind = min(t.bigBlind, t.stacks[seat])
		}
		h.history.BlindsOrStraddles = append(h.history.BlindsOrStraddles, blind)
		t.stacks[seat] -= blind
		h.street[seat] = blind
		h.bet = max(h.bet, blind)

		h.history.Players = append(h.history.Players, addressAt(e, seat, t))
		h.history.Actions = append(h.history.Actions, fmt.Sprintf("d dh p%d %s", i+1, Unknown))
	}
	for _, pk := range e.PublicKeys {
		keys = append(keys, pk.Hex())
	}
	h.history.Metadata["public_keys"] = keys
	t.hand = h
}

func addressAt(e game.HandCreatedEvent, seat int, t *tableState) string {
	for _, addr := range e.Players {
		if t.seats[addr] == seat {
			return addr.String()
		}
	}
	return ""
}

func (t *tableState) credit(awards []game.Award) {
	for _, a := range awards {
		t.stacks[a.Seat] += uint64(a.Amount)
	}
}

func (t *tableState) finishHand(awards []game.Award) {
	h := t.hand
	h.history.FinishingStacks = make([]uint64, len(h.seats))
	h.history.Winnings = make([]uint64, len(h.seats))
	for i, seat := range h.seats {
		h.history.FinishingStacks[i] = t.stacks[seat]
	}
	for _, a := range awards {
		if p, ok := h.player[a.Seat]; ok {
			h.history.Winnings[p-1] += uint64(a.Amount)
		}
	}
}
