package simulator

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/poker"
)

// Decision is what a strategy wants to do. Amount is the total bet for a
// Raise and ignored otherwise.
type Decision struct {
	Action game.Action
	Amount chips.Amount
}

// Situation is the acting player's view of the table.
type Situation struct {
	Game *game.Game
	Me   *game.Player
	// Hole is the player's own cards, derived locally from the captured
	// entropy and their secret.
	Hole []poker.Card
}

// ToCall is what the player needs to put in to continue.
func (s Situation) ToCall() chips.Amount {
	if s.Game.CurrentBet <= s.Me.Committed {
		return 0
	}
	return s.Game.CurrentBet - s.Me.Committed
}

// MaxRaise is the largest total bet the player can make.
func (s Situation) MaxRaise() chips.Amount {
	return s.Me.Committed + s.Me.Stack
}

// raiseTo clamps a desired total bet to what the player can afford, going
// all in when that is less than a legal raise.
func (s Situation) raiseTo(total chips.Amount) Decision {
	if total > s.MaxRaise() {
		total = s.MaxRaise()
	}
	if total <= s.Game.CurrentBet {
		return Decision{Action: game.AllIn}
	}
	if total == s.MaxRaise() {
		return Decision{Action: game.AllIn}
	}
	return Decision{Action: game.Raise, Amount: total}
}

func (s Situation) checkOrFold() Decision {
	if s.ToCall() == 0 {
		return Decision{Action: game.Check}
	}
	return Decision{Action: game.Fold}
}

func (s Situation) checkOrCall() Decision {
	if s.ToCall() == 0 {
		return Decision{Action: game.Check}
	}
	return Decision{Action: game.Call}
}

// Strategy picks a betting decision.
type Strategy interface {
	Decide(s Situation) Decision
}

// NewStrategy builds a strategy by name. rng is only used by strategies
// that randomise.
func NewStrategy(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "call":
		return callStrategy{}, nil
	case "fold":
		return foldStrategy{}, nil
	case "random":
		return &randomStrategy{rng: rng}, nil
	case "maniac":
		return &maniacStrategy{rng: rng}, nil
	case "tight":
		return tightStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// callStrategy checks or calls every street.
type callStrategy struct{}

func (callStrategy) Decide(s Situation) Decision { return s.checkOrCall() }

// foldStrategy never puts in a chip it does not have to.
type foldStrategy struct{}

func (foldStrategy) Decide(s Situation) Decision { return s.checkOrFold() }

// randomStrategy picks uniformly among the legal actions, raising a random
// amount.
type randomStrategy struct {
	rng *rand.Rand
}

func (r *randomStrategy) Decide(s Situation) Decision {
	options := []game.Action{game.Fold, game.AllIn}
	if s.ToCall() == 0 {
		options = append(options, game.Check)
	} else {
		options = append(options, game.Call)
	}
	if s.MaxRaise() > s.Game.CurrentBet+1 {
		options = append(options, game.Raise)
	}

	switch action := options[r.rng.IntN(len(options))]; action {
	case game.Raise:
		lo := s.Game.CurrentBet + 1
		span := uint64(s.MaxRaise() - lo)
		return s.raiseTo(lo + chips.Amount(r.rng.Uint64N(span+1)))
	default:
		return Decision{Action: action}
	}
}

// maniacStrategy bets and shoves relentlessly and rarely folds.
type maniacStrategy struct {
	rng *rand.Rand
}

func (m *maniacStrategy) Decide(s Situation) Decision {
	bb := s.Game.BigBlind
	if s.ToCall() == 0 {
		if m.rng.Float64() < 0.85 {
			if s.Me.Stack <= 20*bb || m.rng.Float64() < 0.3 {
				return Decision{Action: game.AllIn}
			}
			return s.raiseTo(s.Game.CurrentBet + s.Game.Pot*3/4 + bb)
		}
		return Decision{Action: game.Check}
	}

	v := m.rng.Float64()
	switch {
	case v < 0.4:
		return Decision{Action: game.AllIn}
	case v < 0.8:
		return Decision{Action: game.Call}
	}
	return Decision{Action: game.Fold}
}

// tightStrategy plays only pairs and two broadway cards, raising with them
// preflop and calling down after.
type tightStrategy struct{}

func (tightStrategy) Decide(s Situation) Decision {
	if !premium(s.Hole) {
		return s.checkOrFold()
	}
	if s.Game.State == game.PreFlop && s.Game.CurrentBet <= s.Game.BigBlind {
		return s.raiseTo(3 * s.Game.BigBlind)
	}
	return s.checkOrCall()
}

func premium(hole []poker.Card) bool {
	if len(hole) != 2 {
		return false
	}
	a, b := hole[0].Value, hole[1].Value
	return a == b || (a >= poker.Ten && b >= poker.Ten)
}
