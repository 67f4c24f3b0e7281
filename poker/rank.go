package poker

import (
	"fmt"
	"strings"
)

// Category is the class of a five card hand, ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	if c > RoyalFlush {
		return "Unknown"
	}
	return [...]string{
		"High Card",
		"One Pair",
		"Two Pair",
		"Three of a Kind",
		"Straight",
		"Flush",
		"Full House",
		"Four of a Kind",
		"Straight Flush",
		"Royal Flush",
	}[c]
}

// HandRank totally orders hands: category first, then tiebreakers in
// descending significance.
type HandRank struct {
	Category    Category `json:"category"`
	Tiebreakers []Value  `json:"tiebreakers"`
}

// Compare returns 1 if r beats o, -1 if o beats r and 0 on a tie.
func (r HandRank) Compare(o HandRank) int {
	if r.Category != o.Category {
		if r.Category > o.Category {
			return 1
		}
		return -1
	}
	n := min(len(r.Tiebreakers), len(o.Tiebreakers))
	for i := 0; i < n; i++ {
		switch {
		case r.Tiebreakers[i] > o.Tiebreakers[i]:
			return 1
		case r.Tiebreakers[i] < o.Tiebreakers[i]:
			return -1
		}
	}
	switch {
	case len(r.Tiebreakers) > len(o.Tiebreakers):
		return 1
	case len(r.Tiebreakers) < len(o.Tiebreakers):
		return -1
	}
	return 0
}

func (r HandRank) String() string {
	tb := r.Tiebreakers
	switch r.Category {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush, Straight:
		if len(tb) > 0 {
			return fmt.Sprintf("%s, %s high", r.Category, tb[0])
		}
	case FourOfAKind:
		if len(tb) > 0 {
			return fmt.Sprintf("Four %ss", tb[0])
		}
	case FullHouse:
		if len(tb) > 1 {
			return fmt.Sprintf("Full House, %ss over %ss", tb[0], tb[1])
		}
	case ThreeOfAKind:
		if len(tb) > 0 {
			return fmt.Sprintf("Three %ss", tb[0])
		}
	case TwoPair:
		if len(tb) > 1 {
			return fmt.Sprintf("Two Pair, %ss and %ss", tb[0], tb[1])
		}
	case OnePair:
		if len(tb) > 0 {
			return fmt.Sprintf("Pair of %ss", tb[0])
		}
	}
	parts := make([]string, len(tb))
	for i, v := range tb {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s (%s)", r.Category, strings.Join(parts, ""))
}
