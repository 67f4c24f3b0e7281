package game

import (
	"fmt"
	"slices"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/poker"
)

// Pot is the main pot or a side pot.
type Pot struct {
	Amount   chips.Amount `json:"amount"`
	Eligible []int        `json:"eligible"` // seats that can win it
	Cap      chips.Amount `json:"cap"`      // contribution level the pot covers
}

// Award is a payout to one seat.
type Award struct {
	Seat   int          `json:"seat"`
	Amount chips.Amount `json:"amount"`
}

// CalculatePots splits the hand's contributions into a main pot and side
// pots, one per distinct all-in level among contenders. Contributions from
// folded players stay in the pots they reached.
func (g *Game) CalculatePots() ([]Pot, error) {
	var levels []chips.Amount
	for _, p := range g.Seats {
		if p.contending() && !slices.Contains(levels, p.TotalCommitted) {
			levels = append(levels, p.TotalCommitted)
		}
	}
	slices.Sort(levels)

	var pots []Pot
	var prev, distributed chips.Amount
	for _, level := range levels {
		pot := Pot{Cap: level}
		for _, p := range g.Seats {
			if p == nil || !p.InHand {
				continue
			}
			pot.Amount += min(p.TotalCommitted, level) - min(p.TotalCommitted, prev)
			if p.contending() && p.TotalCommitted >= level {
				pot.Eligible = append(pot.Eligible, p.Seat)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
			distributed += pot.Amount
		}
		prev = level
	}

	// Folded players can have put in more than any contender ever matched.
	if distributed < g.Pot {
		if len(pots) == 0 {
			return nil, fmt.Errorf("pot of %d has no contenders", g.Pot)
		}
		pots[len(pots)-1].Amount += g.Pot - distributed
	}
	return pots, nil
}

// showdownAwards ranks the revealed contenders and splits every pot between its
// best hands. An odd chip goes to the winner seated earliest after the
// button.
func (g *Game) showdownAwards(pots []Pot) ([]Award, error) {
	order := g.actingOrder()
	position := make(map[int]int, len(order))
	for i, seat := range order {
		position[seat] = i
	}

	totals := make(map[int]chips.Amount)
	for _, pot := range pots {
		var best *poker.HandRank
		var winners []int
		for _, seat := range pot.Eligible {
			p := g.Seats[seat]
			if p.Rank == nil {
				return nil, fmt.Errorf("seat %d has not revealed", seat)
			}
			switch {
			case best == nil || p.Rank.Compare(*best) > 0:
				best = p.Rank
				winners = []int{seat}
			case p.Rank.Compare(*best) == 0:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			return nil, fmt.Errorf("pot of %d has no eligible winner", pot.Amount)
		}
		slices.SortFunc(winners, func(a, b int) int { return position[a] - position[b] })

		share, remainder := pot.Amount.Split(len(winners))
		for i, seat := range winners {
			amt := share
			if i == 0 {
				amt += remainder
			}
			totals[seat] += amt
		}
	}

	var awards []Award
	for _, seat := range order {
		if amt, ok := totals[seat]; ok && amt > 0 {
			awards = append(awards, Award{Seat: seat, Amount: amt})
		}
	}
	return awards, nil
}
