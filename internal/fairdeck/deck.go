// Package fairdeck derives replayable shuffles from an entropy anchor and a
// participant secret.
package fairdeck

import (
	"fmt"
	"strings"

	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

// DeckSize is the number of cards in a deck.
const DeckSize = 52

// Protocol positions within a participant's deck.
const (
	HoleIndex  = 0
	FlopIndex  = 2
	TurnIndex  = 5
	RiverIndex = 6
	HandSize   = 7
)

// Deck is a permutation of card numbers 1..52.
type Deck [DeckSize]int

// Seed mixes the shared entropy with a participant secret:
// keccak256(entropyHash ‖ secret).
func Seed(entropy, secret protocol.Hash) protocol.Hash {
	return protocol.Keccak256(entropy[:], secret[:])
}

// Shuffle permutes [1..52] in place. Step i swaps position i with
// keccak256(seed ‖ uint256(i)) mod (52-i), so anyone holding the seed can
// replay the deck.
func Shuffle(seed protocol.Hash) Deck {
	var d Deck
	for i := range d {
		d[i] = i + 1
	}
	for i := 0; i < DeckSize; i++ {
		h := protocol.Keccak256(seed[:], protocol.Uint256(uint64(i)))
		j := int(modHash(h, uint64(DeckSize-i)))
		d[i], d[j] = d[j], d[i]
	}
	return d
}

// Derive returns the deck for a participant.
func Derive(entropy, secret protocol.Hash) Deck {
	return Shuffle(Seed(entropy, secret))
}

// modHash reduces the hash, read as a big-endian uint256, modulo m.
func modHash(h protocol.Hash, m uint64) uint64 {
	var r uint64
	for _, b := range h {
		r = (r<<8 | uint64(b)) % m
	}
	return r
}

// Card maps the deck position to a card.
func (d Deck) Card(i int) poker.Card {
	c, err := poker.CardFromNumber(d[i])
	if err != nil {
		// A Deck built by Shuffle only holds 1..52.
		panic(err)
	}
	return c
}

// Cards returns the cards at positions [from, to).
func (d Deck) Cards(from, to int) []poker.Card {
	out := make([]poker.Card, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, d.Card(i))
	}
	return out
}

// Hole returns positions 0 and 1.
func (d Deck) Hole() []poker.Card { return d.Cards(HoleIndex, FlopIndex) }

// Board returns positions 2 through 6.
func (d Deck) Board() []poker.Card { return d.Cards(FlopIndex, HandSize) }

// Valid reports whether d is a permutation of 1..52.
func (d Deck) Valid() bool {
	var seen [DeckSize + 1]bool
	for _, n := range d {
		if n < 1 || n > DeckSize || seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}

func (d Deck) String() string {
	parts := make([]string, DeckSize)
	for i := range d {
		parts[i] = d.Card(i).String()
	}
	return strings.Join(parts, " ")
}

// Street identifies which community cards a submission covers.
type Street int

const (
	Flop Street = iota
	Turn
	River
)

func (s Street) String() string {
	if s < Flop || s > River {
		return "unknown"
	}
	return [...]string{"flop", "turn", "river"}[s]
}

// Span returns the board positions covered by the street.
func (s Street) Span() (from, to int) {
	switch s {
	case Flop:
		return FlopIndex, TurnIndex
	case Turn:
		return TurnIndex, RiverIndex
	case River:
		return RiverIndex, HandSize
	}
	return 0, 0
}

// Size is the number of cards revealed on the street.
func (s Street) Size() int {
	from, to := s.Span()
	return to - from
}

// Derivation selects how community cards are produced.
type Derivation int

const (
	// PerParticipant reads the board from each participant's own deck, so
	// two participants may see different boards.
	PerParticipant Derivation = iota
	// Shared reads the board from keccak256(entropyHash) alone and deals
	// hole cards from the participant deck, skipping board cards.
	Shared
)

func (d Derivation) String() string {
	switch d {
	case PerParticipant:
		return "per_participant"
	case Shared:
		return "shared"
	}
	return "unknown"
}

// ParseDerivation accepts the String forms.
func ParseDerivation(s string) (Derivation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_participant", "per-participant":
		return PerParticipant, nil
	case "shared":
		return Shared, nil
	}
	return 0, fmt.Errorf("unknown board derivation %q", s)
}

// SharedBoard derives the community cards from the entropy anchor alone.
func SharedBoard(entropy protocol.Hash) []poker.Card {
	return Shuffle(protocol.Keccak256(entropy[:])).Board()
}

// Hand is a participant's seven cards: two hole cards and the board.
type Hand struct {
	Hole  []poker.Card `json:"hole"`
	Board []poker.Card `json:"board"`
}

// Cards returns hole cards followed by the board.
func (h Hand) Cards() []poker.Card {
	out := make([]poker.Card, 0, len(h.Hole)+len(h.Board))
	out = append(out, h.Hole...)
	return append(out, h.Board...)
}

// Street returns the board cards revealed on s.
func (h Hand) Street(s Street) []poker.Card {
	from, to := s.Span()
	if to == 0 || len(h.Board) < to-FlopIndex {
		return nil
	}
	return h.Board[from-FlopIndex : to-FlopIndex]
}

// DeriveHand builds a participant's hand under the given derivation.
func DeriveHand(mode Derivation, entropy, secret protocol.Hash) Hand {
	deck := Derive(entropy, secret)
	if mode != Shared {
		return Hand{Hole: deck.Hole(), Board: deck.Board()}
	}

	board := SharedBoard(entropy)
	onBoard := make(map[poker.Card]bool, len(board))
	for _, c := range board {
		onBoard[c] = true
	}
	hole := make([]poker.Card, 0, 2)
	for i := 0; i < DeckSize && len(hole) < 2; i++ {
		if c := deck.Card(i); !onBoard[c] {
			hole = append(hole, c)
		}
	}
	return Hand{Hole: hole, Board: board}
}
