package game

import (
	"fmt"
	"strings"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
)

// State is the game's position in the hand lifecycle.
type State int

const (
	Waiting State = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
)

func (s State) String() string {
	if s < Waiting || s > Showdown {
		return "unknown"
	}
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}[s]
}

// Betting reports whether players may act in this state.
func (s State) Betting() bool {
	return s >= PreFlop && s <= River
}

// InHand reports whether a hand is in progress.
func (s State) InHand() bool {
	return s >= PreFlop && s <= Showdown
}

// Street maps a post-flop state to the board street it reveals.
func (s State) Street() (fairdeck.Street, bool) {
	switch s {
	case Flop:
		return fairdeck.Flop, true
	case Turn:
		return fairdeck.Turn, true
	case River:
		return fairdeck.River, true
	}
	return 0, false
}

// Action is a betting decision.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	if a < Fold || a > AllIn {
		return "unknown"
	}
	return [...]string{"fold", "check", "call", "raise", "allin"}[a]
}

// ParseAction accepts the String forms.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "raise", "bet":
		return Raise, nil
	case "allin", "all-in", "all_in":
		return AllIn, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// commit moves chips from the player's stack into the pot.
func (g *Game) commit(p *Player, amount chips.Amount) error {
	stack, err := p.Stack.Sub(amount)
	if err != nil {
		return err
	}
	pot, err := g.Pot.Add(amount)
	if err != nil {
		return err
	}
	p.Stack = stack
	p.Committed += amount
	p.TotalCommitted += amount
	g.Pot = pot
	if p.Stack == 0 {
		p.AllIn = true
	}
	return nil
}

// applyAction validates and applies a decision by the player on the cursor.
// It returns the chips moved.
func (g *Game) applyAction(p *Player, action Action, amount chips.Amount) (chips.Amount, error) {
	var moved chips.Amount
	switch action {
	case Fold:
		p.Folded = true

	case Check:
		if p.Committed != g.CurrentBet {
			return 0, fmt.Errorf("%w: cannot check, %d to call", protocol.ErrIllegalAction, g.CurrentBet-p.Committed)
		}

	case Call:
		moved = min(g.CurrentBet-p.Committed, p.Stack)
		if err := g.commit(p, moved); err != nil {
			return 0, err
		}

	case Raise:
		if amount <= g.CurrentBet {
			return 0, fmt.Errorf("%w: raise to %d must exceed current bet %d", protocol.ErrIllegalAction, amount, g.CurrentBet)
		}
		moved = amount - p.Committed
		if moved > p.Stack {
			return 0, fmt.Errorf("%w: raise to %d needs %d, stack is %d", protocol.ErrIllegalAction, amount, moved, p.Stack)
		}
		if err := g.commit(p, moved); err != nil {
			return 0, err
		}
		g.CurrentBet = amount
		g.reopenAction(p)

	case AllIn:
		if p.Stack == 0 {
			return 0, fmt.Errorf("%w: no chips left", protocol.ErrIllegalAction)
		}
		moved = p.Stack
		if err := g.commit(p, moved); err != nil {
			return 0, err
		}
		if p.Committed > g.CurrentBet {
			g.CurrentBet = p.Committed
			g.reopenAction(p)
		}

	default:
		return 0, fmt.Errorf("%w: unknown action %d", protocol.ErrIllegalAction, action)
	}

	p.HasActed = true
	return moved, nil
}

// reopenAction makes everyone else respond to a new bet.
func (g *Game) reopenAction(raiser *Player) {
	for _, p := range g.Seats {
		if p != nil && p != raiser {
			p.HasActed = false
		}
	}
}

// canAct reports whether the player still makes betting decisions this hand.
func (p *Player) canAct() bool {
	return p != nil && p.InHand && !p.Folded && !p.AllIn
}

func (p *Player) contending() bool {
	return p != nil && p.InHand && !p.Folded
}

// roundComplete is true once every player who can act has matched the bet
// and acted since the last raise. A lone player who can act only has to
// match.
func (g *Game) roundComplete() bool {
	var actors []*Player
	for _, p := range g.Seats {
		if p.canAct() {
			actors = append(actors, p)
		}
	}
	switch len(actors) {
	case 0:
		return true
	case 1:
		return actors[0].Committed >= g.CurrentBet
	}
	for _, p := range actors {
		if p.Committed != g.CurrentBet || !p.HasActed {
			return false
		}
	}
	return true
}

// nextSeat returns the first seat after from (exclusive, wrapping) whose
// player satisfies ok, or -1.
func (g *Game) nextSeat(from int, ok func(*Player) bool) int {
	n := len(g.Seats)
	for i := 1; i <= n; i++ {
		seat := ((from+i)%n + n) % n
		if ok(g.Seats[seat]) {
			return seat
		}
	}
	return -1
}

// advanceStreet resets per-street betting and moves to the next state.
func (g *Game) advanceStreet() {
	for _, p := range g.Seats {
		if p != nil {
			p.Committed = 0
			p.HasActed = false
		}
	}
	g.CurrentBet = 0
	g.State++
	if g.State == Showdown {
		g.ActionCursor = -1
		return
	}
	g.ActionCursor = g.nextSeat(g.Button, (*Player).canAct)
}

func (g *Game) contenders() []*Player {
	var out []*Player
	for _, p := range g.Seats {
		if p.contending() {
			out = append(out, p)
		}
	}
	return out
}
