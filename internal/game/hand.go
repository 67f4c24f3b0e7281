package game

import (
	"fmt"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

// Player is a seated participant.
type Player struct {
	Seat          int              `json:"seat"`
	Address       protocol.Address `json:"address"`
	PublicKey     protocol.Hash    `json:"public_key"`
	NextPublicKey protocol.Hash    `json:"next_public_key,omitzero"`
	Stack         chips.Amount     `json:"stack"`

	// Per-hand state, cleared by resetHand.
	InHand         bool            `json:"in_hand"`
	Folded         bool            `json:"folded"`
	AllIn          bool            `json:"all_in"`
	HasActed       bool            `json:"has_acted"`
	Committed      chips.Amount    `json:"committed"`
	TotalCommitted chips.Amount    `json:"total_committed"`
	Revealed       bool            `json:"revealed"`
	Cards          []poker.Card    `json:"cards,omitempty"`
	Rank           *poker.HandRank `json:"rank,omitempty"`
}

func (p *Player) resetHand() {
	p.InHand = false
	p.Folded = false
	p.AllIn = false
	p.HasActed = false
	p.Committed = 0
	p.TotalCommitted = 0
	p.Revealed = false
	p.Cards = nil
	p.Rank = nil
}

// Game is the persisted table record.
type Game struct {
	ID         uint64       `json:"id"`
	MaxPlayers int          `json:"max_players"`
	SmallBlind chips.Amount `json:"small_blind"`
	BigBlind   chips.Amount `json:"big_blind"`
	BuyIn      chips.Amount `json:"buy_in"`
	AutoDeal   bool         `json:"auto_deal"`
	Seats      []*Player    `json:"seats"`

	State        State        `json:"state"`
	Pot          chips.Amount `json:"pot"`
	CurrentBet   chips.Amount `json:"current_bet"`
	Button       int          `json:"button"`
	SmallBlindAt int          `json:"small_blind_seat"`
	BigBlindAt   int          `json:"big_blind_seat"`
	ActionCursor int          `json:"action_cursor"`

	HandNumber       uint64        `json:"hand_number"`
	SessionID        uint64        `json:"session_id"`
	EntropyHash      protocol.Hash `json:"entropy_hash"`
	ShowdownDeadline uint64        `json:"showdown_deadline"`

	// Chips that entered and left escrow over the game's life.
	BuyIns  chips.Amount `json:"buy_ins"`
	PaidOut chips.Amount `json:"paid_out"`

	// Settlement is set while a hand's payouts are outstanding.
	Settlement *Settlement `json:"settlement,omitempty"`
}

// PlayerAt returns the player in seat, or nil.
func (g *Game) PlayerAt(seat int) *Player {
	if seat < 0 || seat >= len(g.Seats) {
		return nil
	}
	return g.Seats[seat]
}

// Player finds a seated player by address.
func (g *Game) Player(addr protocol.Address) *Player {
	for _, p := range g.Seats {
		if p != nil && p.Address == addr {
			return p
		}
	}
	return nil
}

// Seated counts occupied seats.
func (g *Game) Seated() int {
	n := 0
	for _, p := range g.Seats {
		if p != nil {
			n++
		}
	}
	return n
}

// ToAct returns the player on the action cursor, or nil.
func (g *Game) ToAct() *Player {
	if !g.State.Betting() {
		return nil
	}
	return g.PlayerAt(g.ActionCursor)
}

// ValidateConservation checks that no chips were created or destroyed:
// pot + stacks + paid out equals everything bought in, and the pot equals
// this hand's contributions.
func (g *Game) ValidateConservation() error {
	var stacks, contributed chips.Amount
	for _, p := range g.Seats {
		if p == nil {
			continue
		}
		stacks += p.Stack
		contributed += p.TotalCommitted
	}
	total := g.Pot + stacks + g.PaidOut
	if total != g.BuyIns {
		return fmt.Errorf("chip conservation violated in game %d: pot %d + stacks %d + paid out %d = %d, bought in %d",
			g.ID, g.Pot, stacks, g.PaidOut, total, g.BuyIns)
	}
	pot := g.Pot
	if g.Settlement != nil {
		pot += g.Settlement.paid()
	}
	if g.State.InHand() && contributed != pot {
		return fmt.Errorf("pot mismatch in game %d: pot %d, contributions %d", g.ID, pot, contributed)
	}
	return nil
}

// actingOrder lists seats starting after the button.
func (g *Game) actingOrder() []int {
	n := len(g.Seats)
	order := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		order = append(order, (g.Button+i)%n)
	}
	return order
}

// endHand returns the table to Waiting.
func (g *Game) endHand() {
	for _, p := range g.Seats {
		if p != nil {
			p.resetHand()
		}
	}
	g.State = Waiting
	g.Pot = 0
	g.CurrentBet = 0
	g.ActionCursor = -1
	g.ShowdownDeadline = 0
}
