package poker

import (
	"testing"

	pk "github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/randutil"
)

func TestEvaluateBestHandCategories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		cards       string
		category    Category
		tiebreakers []Value
	}{
		{"royal flush", "As Ks Qs Js Ts 2d 3c", RoyalFlush, []Value{Ace}},
		{"straight flush", "9h 8h 7h 6h 5h Ad Kc", StraightFlush, []Value{Nine}},
		{"steel wheel", "Ad 2d 3d 4d 5d Kc Qh", StraightFlush, []Value{Five}},
		{"four of a kind", "7s 7h 7d 7c Ks 2d 3c", FourOfAKind, []Value{Seven, King}},
		{"full house", "Ts Th Td 4c 4s 2d 9c", FullHouse, []Value{Ten, Four}},
		{"full house from two trips", "Ts Th Td 4c 4s 4d 9c", FullHouse, []Value{Ten, Four}},
		{"flush", "Ac Jc 9c 6c 3c Kd Qh", Flush, []Value{Ace, Jack, Nine, Six, Three}},
		{"flush keeps top five", "Ac Jc 9c 6c 3c 2c Qh", Flush, []Value{Ace, Jack, Nine, Six, Three}},
		{"straight", "9s 8h 7d 6c 5s 2d Kc", Straight, []Value{Nine}},
		{"broadway", "As Kh Qd Jc Ts 2d 3c", Straight, []Value{Ace}},
		{"wheel plays five high", "Ah 2c 3d 4s 5h 9c Jd", Straight, []Value{Five}},
		{"six high beats wheel in same cards", "Ah 2c 3d 4s 5h 6c Jd", Straight, []Value{Six}},
		{"three of a kind", "Qs Qh Qd 9c 7s 4d 2c", ThreeOfAKind, []Value{Queen, Nine, Seven}},
		{"two pair", "Js Jh 5d 5c As 3d 2c", TwoPair, []Value{Jack, Five, Ace}},
		{"two pair from three pairs", "Js Jh 5d 5c 9s 9d 2c", TwoPair, []Value{Jack, Nine, Five}},
		{"one pair", "8s 8h Ad Kc 6s 4d 2c", OnePair, []Value{Eight, Ace, King, Six}},
		{"high card", "As Jh 9d 7c 5s 3d 2c", HighCard, []Value{Ace, Jack, Nine, Seven, Five}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rank, err := EvaluateBestHand(MustParseCards(tt.cards))
			require.NoError(t, err)
			assert.Equal(t, tt.category, rank.Category)
			assert.Equal(t, tt.tiebreakers, rank.Tiebreakers)
		})
	}
}

func TestEvaluateBestHandRejectsInvalidHands(t *testing.T) {
	t.Parallel()

	_, err := EvaluateBestHand(MustParseCards("As As Qs Js Ts 2d 3c"))
	require.ErrorIs(t, err, ErrInvalidHand)

	_, err = EvaluateBestHand(MustParseCards("As Ks Qs Js Ts 2d"))
	require.ErrorIs(t, err, ErrInvalidHand)

	cards := MustParseCards("As Ks Qs Js Ts 2d 3c")
	cards[6] = Card{Value: 15, Suit: Clubs}
	_, err = EvaluateBestHand(cards)
	require.ErrorIs(t, err, ErrInvalidHand)

	cards[6] = Card{Value: Three, Suit: 4}
	_, err = EvaluateBestHand(cards)
	require.ErrorIs(t, err, ErrInvalidHand)
}

func TestCompareHands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want Outcome
	}{
		{"royal beats straight flush", "As Ks Qs Js Ts 2d 3c", "9h 8h 7h 6h 5h Ad Kc", FirstWins},
		{"higher kicker wins", "8s 8h Ad Kc 6s 4d 2c", "8d 8c Ah Qc 6h 4s 2d", FirstWins},
		{"suits never break ties", "Js Jh 5d 5c As 3d 2c", "Jd Jc 5s 5h Ad 3c 2s", Tie},
		{"six high straight beats wheel", "Ah 2c 3d 4s 5h Kc Jd", "2h 3c 4d 5s 6h Kd Jc", SecondWins},
		{"board plays", "2c 3d As Ks Qd Jh 9c", "2d 3h As Ks Qd Jh 9c", Tie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := MustParseCards(tt.a), MustParseCards(tt.b)
			got, err := CompareHands(a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			swapped, err := CompareHands(b, a)
			require.NoError(t, err)
			assert.Equal(t, mirror(tt.want), swapped)
		})
	}
}

func TestCompareHandsRejectsDuplicates(t *testing.T) {
	t.Parallel()
	_, err := CompareHands(MustParseCards("As As Qs Js Ts 2d 3c"), MustParseCards("As Ks Qs Js Ts 2d 3c"))
	require.ErrorIs(t, err, ErrInvalidHand)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tie", Tie.String())
	assert.Equal(t, "second wins", SecondWins.String())
	assert.Equal(t, "unknown", Outcome(3).String())
	assert.Equal(t, "unknown", Outcome(-1).String())
	assert.Equal(t, "Unknown", Category(99).String())
}

// The combinatorial evaluator must order hands exactly like an independent
// lookup-table evaluator.
func TestEvaluatorAgreesWithReference(t *testing.T) {
	t.Parallel()
	rng := randutil.New(42)

	for i := 0; i < 2000; i++ {
		perm := rng.Perm(52)
		a := make([]Card, 7)
		b := make([]Card, 7)
		for j := 0; j < 7; j++ {
			a[j], _ = CardFromNumber(perm[j] + 1)
			b[j], _ = CardFromNumber(perm[j+7] + 1)
		}

		got, err := CompareHands(a, b)
		require.NoError(t, err)

		ea, eb := referenceEval(t, a), referenceEval(t, b)
		want := Tie
		switch {
		case ea > eb:
			want = FirstWins
		case ea < eb:
			want = SecondWins
		}
		require.Equal(t, want, got, "a=%s b=%s", FormatCards(a), FormatCards(b))
	}
}

func TestCategoryMonotonic(t *testing.T) {
	t.Parallel()
	rng := randutil.New(7)
	for i := 0; i < 500; i++ {
		perm := rng.Perm(52)
		a := make([]Card, 7)
		b := make([]Card, 7)
		for j := 0; j < 7; j++ {
			a[j], _ = CardFromNumber(perm[j] + 1)
			b[j], _ = CardFromNumber(perm[j+7] + 1)
		}
		ra, err := EvaluateBestHand(a)
		require.NoError(t, err)
		rb, err := EvaluateBestHand(b)
		require.NoError(t, err)
		require.LessOrEqual(t, ra.Category, RoyalFlush)
		if ra.Category > rb.Category {
			require.Equal(t, 1, ra.Compare(rb))
		}
	}
}

func mirror(o Outcome) Outcome {
	switch o {
	case FirstWins:
		return SecondWins
	case SecondWins:
		return FirstWins
	}
	return Tie
}

func referenceEval(t *testing.T, cards []Card) int16 {
	t.Helper()
	var hand [7]pk.Card
	for i, c := range cards {
		r := pk.Rank(c.Value)
		if c.Value == Ace {
			r = pk.Rank(1) // Ace; the library has no named rank constants
		}
		pc, err := pk.MakeCard(pk.Suit(c.Suit), r)
		require.NoError(t, err)
		hand[i] = pc
	}
	return pk.Eval7(&hand)
}
