package poker

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidHand is returned for hands that are not seven distinct valid cards.
var ErrInvalidHand = errors.New("invalid hand")

// Outcome is the result of CompareHands.
type Outcome int

const (
	Tie Outcome = iota
	FirstWins
	SecondWins
)

func (o Outcome) String() string {
	if o < Tie || o > SecondWins {
		return "unknown"
	}
	return [...]string{"tie", "first wins", "second wins"}[o]
}

// EvaluateBestHand ranks the best five card hand that can be made from
// exactly seven distinct cards.
func EvaluateBestHand(cards []Card) (HandRank, error) {
	if len(cards) != 7 {
		return HandRank{}, fmt.Errorf("%w: need 7 cards, got %d", ErrInvalidHand, len(cards))
	}
	var seen [53]bool
	for _, c := range cards {
		if !c.Valid() {
			return HandRank{}, fmt.Errorf("%w: bad card value=%d suit=%d", ErrInvalidHand, c.Value, c.Suit)
		}
		if seen[c.Number()] {
			return HandRank{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c)
		}
		seen[c.Number()] = true
	}

	var best HandRank
	first := true
	var five [5]Card
	// Choose the two cards to leave out; that enumerates all 21 subsets.
	for skipA := 0; skipA < 7; skipA++ {
		for skipB := skipA + 1; skipB < 7; skipB++ {
			n := 0
			for i, c := range cards {
				if i != skipA && i != skipB {
					five[n] = c
					n++
				}
			}
			r := rankFive(five)
			if first || r.Compare(best) > 0 {
				best = r
				first = false
			}
		}
	}
	return best, nil
}

// CompareHands evaluates two seven card hands and reports which one wins.
func CompareHands(a, b []Card) (Outcome, error) {
	ra, err := EvaluateBestHand(a)
	if err != nil {
		return Tie, fmt.Errorf("first hand: %w", err)
	}
	rb, err := EvaluateBestHand(b)
	if err != nil {
		return Tie, fmt.Errorf("second hand: %w", err)
	}
	switch ra.Compare(rb) {
	case 1:
		return FirstWins, nil
	case -1:
		return SecondWins, nil
	}
	return Tie, nil
}

type group struct {
	value Value
	count int
}

func rankFive(cards [5]Card) HandRank {
	var counts [Ace + 1]int
	flush := true
	for i, c := range cards {
		counts[c.Value]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	groups := make([]group, 0, 5)
	for v := Ace; v >= Two; v-- {
		if counts[v] > 0 {
			groups = append(groups, group{value: v, count: counts[v]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	high, straight := straightHigh(groups)
	switch {
	case straight && flush && high == Ace:
		return HandRank{Category: RoyalFlush, Tiebreakers: []Value{Ace}}
	case straight && flush:
		return HandRank{Category: StraightFlush, Tiebreakers: []Value{high}}
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreakers: values(groups)}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreakers: values(groups)}
	case flush:
		return HandRank{Category: Flush, Tiebreakers: values(groups)}
	case straight:
		return HandRank{Category: Straight, Tiebreakers: []Value{high}}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreakers: values(groups)}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreakers: values(groups)}
	case groups[0].count == 2:
		return HandRank{Category: OnePair, Tiebreakers: values(groups)}
	}
	return HandRank{Category: HighCard, Tiebreakers: values(groups)}
}

// straightHigh reports the top card of a straight. The wheel (A-2-3-4-5)
// plays five high.
func straightHigh(groups []group) (Value, bool) {
	if len(groups) != 5 {
		return 0, false
	}
	// Groups of one are already sorted by value descending.
	top, bottom := groups[0].value, groups[4].value
	if top-bottom == 4 {
		return top, true
	}
	if top == Ace && groups[1].value == Five && bottom == Two {
		return Five, true
	}
	return 0, false
}

func values(groups []group) []Value {
	out := make([]Value, len(groups))
	for i, g := range groups {
		out[i] = g.value
	}
	return out
}
