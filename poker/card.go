// Package poker ranks Texas Hold'em hands.
package poker

import (
	"fmt"
	"strings"
)

// Value is a card rank from Two (2) to Ace (14).
type Value uint8

const (
	Two Value = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const valueChars = "23456789TJQKA"

func (v Value) String() string {
	if v < Two || v > Ace {
		return "?"
	}
	return string(valueChars[v-Two])
}

// Suit is a card suit. Suits never break ties outside of flush detection.
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const suitChars = "cdhs"

func (s Suit) String() string {
	if s > Spades {
		return "?"
	}
	return string(suitChars[s])
}

// IsRed returns true for hearts and diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Card is a playing card.
type Card struct {
	Value Value `json:"value"`
	Suit  Suit  `json:"suit"`
}

// NewCard creates a card from a value and suit
func NewCard(v Value, s Suit) Card {
	return Card{Value: v, Suit: s}
}

// Valid reports whether the card is one of the 52 cards of a standard deck.
func (c Card) Valid() bool {
	return c.Value >= Two && c.Value <= Ace && c.Suit <= Spades
}

// String returns the short form of the card, e.g. "As" or "2c".
func (c Card) String() string {
	return c.Value.String() + c.Suit.String()
}

// Number returns the card's position in an unshuffled deck, 1 through 52.
// Clubs come first, and within a suit cards run from Two to Ace.
func (c Card) Number() int {
	return int(c.Suit)*13 + int(c.Value-Two) + 1
}

// CardFromNumber is the inverse of Card.Number.
func CardFromNumber(n int) (Card, error) {
	if n < 1 || n > 52 {
		return Card{}, fmt.Errorf("card number %d out of range", n)
	}
	return Card{
		Value: Value((n-1)%13) + Two,
		Suit:  Suit((n - 1) / 13),
	}, nil
}

// ParseCard parses a two character card like "Ah" or "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	v := strings.IndexByte(valueChars, strings.ToUpper(s[:1])[0])
	if v < 0 {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	su := strings.IndexByte(suitChars, strings.ToLower(s[1:])[0])
	if su < 0 {
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	return Card{Value: Value(v) + Two, Suit: Suit(su)}, nil
}

// ParseCards parses a list of cards, either separated by whitespace or
// concatenated ("AsKs" and "As Ks" are equivalent).
func ParseCards(s string) ([]Card, error) {
	compact := strings.Join(strings.Fields(s), "")
	if len(compact)%2 != 0 {
		return nil, fmt.Errorf("invalid card list %q", s)
	}
	cards := make([]Card, 0, len(compact)/2)
	for i := 0; i < len(compact); i += 2 {
		c, err := ParseCard(compact[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards for fixtures. It panics on error.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards joins cards with spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
