package fairdeck

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

func hashOf(s string) protocol.Hash { return protocol.Keccak256([]byte(s)) }

func TestShuffleIsDeterministicPermutation(t *testing.T) {
	entropy := hashOf("block 42")
	for i := 0; i < 50; i++ {
		secret := hashOf(fmt.Sprintf("secret-%d", i))
		d1 := Derive(entropy, secret)
		d2 := Derive(entropy, secret)
		require.True(t, d1.Valid(), "deck %d is not a permutation", i)
		require.Equal(t, d1, d2)
	}
}

func TestShuffleDependsOnBothInputs(t *testing.T) {
	a := Derive(hashOf("e1"), hashOf("s1"))
	b := Derive(hashOf("e2"), hashOf("s1"))
	c := Derive(hashOf("e1"), hashOf("s2"))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestModHashMatchesBigInt(t *testing.T) {
	for i := 0; i < 100; i++ {
		h := hashOf(fmt.Sprintf("mod-%d", i))
		n := new(big.Int).SetBytes(h[:])
		for m := uint64(1); m <= DeckSize; m++ {
			want := new(big.Int).Mod(n, new(big.Int).SetUint64(m)).Uint64()
			require.Equal(t, want, modHash(h, m))
		}
	}
}

func TestShuffleMatchesReferenceLoop(t *testing.T) {
	seed := Seed(hashOf("anchor"), hashOf("secret"))
	assert.Equal(t, protocol.Keccak256(hashOf("anchor").Bytes(), hashOf("secret").Bytes()), seed)

	want := make([]int, DeckSize)
	for i := range want {
		want[i] = i + 1
	}
	for i := range want {
		h := protocol.Keccak256(seed[:], protocol.Uint256(uint64(i)))
		n := new(big.Int).SetBytes(h[:])
		j := new(big.Int).Mod(n, big.NewInt(int64(len(want)-i))).Int64()
		want[i], want[j] = want[j], want[i]
	}
	d := Shuffle(seed)
	assert.Equal(t, want, d[:])
}

func TestShuffleKnownDeck(t *testing.T) {
	entropy, err := protocol.ParseHash("0x029856239cbdf636ae5828778da7d2437494040db66ef56ac95d0460d481da56")
	require.NoError(t, err)
	secret, err := protocol.ParseHash("0xae3038c5b582cb0ee606eac6f4bc32ca2ce66f9a2b671a9bca6aad6bcaf8d192")
	require.NoError(t, err)

	seed := Seed(entropy, secret)
	assert.Equal(t, "0x45d3040e14d198d9d5579c5ff3871545fd55ae45a49133a99d09c5d3a631afae", seed.Hex())

	d := Shuffle(seed)
	require.True(t, d.Valid())
	assert.Equal(t, []int{52, 51, 50, 15, 11, 47, 45}, d[:HandSize])
	assert.Equal(t, []int{3, 22, 49, 46}, d[DeckSize-4:])
}

func TestPerParticipantHandUsesProtocolPositions(t *testing.T) {
	entropy, secret := hashOf("e"), hashOf("s")
	deck := Derive(entropy, secret)
	hand := DeriveHand(PerParticipant, entropy, secret)

	assert.Equal(t, []poker.Card{deck.Card(0), deck.Card(1)}, hand.Hole)
	assert.Equal(t, deck.Cards(2, 7), hand.Board)
	assert.Equal(t, deck.Cards(2, 5), hand.Street(Flop))
	assert.Equal(t, deck.Cards(5, 6), hand.Street(Turn))
	assert.Equal(t, deck.Cards(6, 7), hand.Street(River))
	assert.Len(t, hand.Cards(), HandSize)
}

// Per-participant derivation mixes each secret into the board, so two
// participants of the same hand are not expected to agree on it.
func TestPerParticipantBoardsDiffer(t *testing.T) {
	entropy := hashOf("e")
	differ := 0
	for i := 0; i < 20; i++ {
		a := DeriveHand(PerParticipant, entropy, hashOf(fmt.Sprintf("a%d", i)))
		b := DeriveHand(PerParticipant, entropy, hashOf(fmt.Sprintf("b%d", i)))
		if !assert.ObjectsAreEqual(a.Board, b.Board) {
			differ++
		}
	}
	assert.Positive(t, differ)
}

func TestSharedBoardIsSecretIndependent(t *testing.T) {
	entropy := hashOf("shared")
	want := SharedBoard(entropy)
	for i := 0; i < 20; i++ {
		hand := DeriveHand(Shared, entropy, hashOf(fmt.Sprintf("p%d", i)))
		require.Equal(t, want, hand.Board)
		require.Len(t, hand.Hole, 2)
		for _, h := range hand.Hole {
			require.NotContains(t, hand.Board, h)
		}
		require.NotEqual(t, hand.Hole[0], hand.Hole[1])
	}
}

func TestStreetSpans(t *testing.T) {
	assert.Equal(t, 3, Flop.Size())
	assert.Equal(t, 1, Turn.Size())
	assert.Equal(t, 1, River.Size())
	assert.Equal(t, "turn", Turn.String())
	assert.Nil(t, Hand{}.Street(River))
}

func TestParseDerivation(t *testing.T) {
	d, err := ParseDerivation("shared")
	require.NoError(t, err)
	assert.Equal(t, Shared, d)

	d, err = ParseDerivation("")
	require.NoError(t, err)
	assert.Equal(t, PerParticipant, d)

	_, err = ParseDerivation("secret")
	require.Error(t, err)
}
