package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/protocol"
)

func bettingGame(stacks ...chips.Amount) *Game {
	g := &Game{Seats: make([]*Player, len(stacks)), State: PreFlop, Button: 0}
	for i, s := range stacks {
		g.Seats[i] = &Player{Seat: i, Stack: s, InHand: true}
		g.BuyIns += s
	}
	return g
}

func TestStateHelpers(t *testing.T) {
	assert.False(t, Waiting.Betting())
	assert.True(t, PreFlop.Betting())
	assert.True(t, River.Betting())
	assert.False(t, Showdown.Betting())
	assert.True(t, Showdown.InHand())
	assert.False(t, Waiting.InHand())
	assert.Equal(t, "turn", Turn.String())
	assert.Equal(t, "unknown", State(42).String())

	_, ok := PreFlop.Street()
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{Fold, Check, Call, Raise, AllIn} {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAction(" All-In ")
	require.NoError(t, err)
	assert.Equal(t, AllIn, got)

	_, err = ParseAction("muck")
	require.Error(t, err)
}

func TestApplyAction(t *testing.T) {
	t.Run("call moves the difference", func(t *testing.T) {
		g := bettingGame(100, 100)
		require.NoError(t, g.commit(g.Seats[1], 10))
		g.CurrentBet = 10

		moved, err := g.applyAction(g.Seats[0], Call, 0)
		require.NoError(t, err)
		assert.Equal(t, chips.Amount(10), moved)
		assert.Equal(t, chips.Amount(20), g.Pot)
		assert.True(t, g.Seats[0].HasActed)
	})

	t.Run("short call goes all in", func(t *testing.T) {
		g := bettingGame(4, 100)
		require.NoError(t, g.commit(g.Seats[1], 10))
		g.CurrentBet = 10

		moved, err := g.applyAction(g.Seats[0], Call, 0)
		require.NoError(t, err)
		assert.Equal(t, chips.Amount(4), moved)
		assert.True(t, g.Seats[0].AllIn)
		assert.False(t, g.Seats[0].canAct())
		assert.True(t, g.Seats[0].contending())
	})

	t.Run("raise reopens the round", func(t *testing.T) {
		g := bettingGame(100, 100, 100)
		for _, p := range g.Seats {
			p.HasActed = true
		}
		_, err := g.applyAction(g.Seats[1], Raise, 6)
		require.NoError(t, err)
		assert.Equal(t, chips.Amount(6), g.CurrentBet)
		assert.False(t, g.Seats[0].HasActed)
		assert.True(t, g.Seats[1].HasActed)
		assert.False(t, g.Seats[2].HasActed)
	})

	t.Run("short all-in does not lower the bet", func(t *testing.T) {
		g := bettingGame(3, 100)
		require.NoError(t, g.commit(g.Seats[1], 10))
		g.CurrentBet = 10
		g.Seats[1].HasActed = true

		_, err := g.applyAction(g.Seats[0], AllIn, 0)
		require.NoError(t, err)
		assert.Equal(t, chips.Amount(10), g.CurrentBet)
		assert.True(t, g.Seats[1].HasActed)
	})

	t.Run("illegal", func(t *testing.T) {
		g := bettingGame(100, 100)
		g.CurrentBet = 10

		_, err := g.applyAction(g.Seats[0], Check, 0)
		require.ErrorIs(t, err, protocol.ErrIllegalAction)
		_, err = g.applyAction(g.Seats[0], Raise, 10)
		require.ErrorIs(t, err, protocol.ErrIllegalAction)
		_, err = g.applyAction(g.Seats[0], Action(99), 0)
		require.ErrorIs(t, err, protocol.ErrIllegalAction)
		assert.Zero(t, g.Pot)
	})
}

func TestRoundComplete(t *testing.T) {
	g := bettingGame(100, 100, 100)
	g.CurrentBet = 2
	require.NoError(t, g.commit(g.Seats[2], 2))
	assert.False(t, g.roundComplete())

	for _, p := range g.Seats[:2] {
		_, err := g.applyAction(p, Call, 0)
		require.NoError(t, err)
	}
	assert.False(t, g.roundComplete(), "big blind has not acted")

	_, err := g.applyAction(g.Seats[2], Check, 0)
	require.NoError(t, err)
	assert.True(t, g.roundComplete())
	require.NoError(t, g.ValidateConservation())
}

func TestRoundCompleteLoneActor(t *testing.T) {
	g := bettingGame(10, 100)
	_, err := g.applyAction(g.Seats[0], AllIn, 0)
	require.NoError(t, err)
	assert.False(t, g.roundComplete(), "must still match the all-in")

	_, err = g.applyAction(g.Seats[1], Call, 0)
	require.NoError(t, err)
	assert.True(t, g.roundComplete())
}

func TestNextSeatWraps(t *testing.T) {
	g := bettingGame(100, 100, 100, 100)
	g.Seats[1].Folded = true
	g.Seats[3] = nil

	assert.Equal(t, 2, g.nextSeat(0, (*Player).canAct))
	assert.Equal(t, 0, g.nextSeat(2, (*Player).canAct))
	assert.Equal(t, 0, g.nextSeat(-1, (*Player).canAct))

	for _, p := range g.Seats {
		if p != nil {
			p.Folded = true
		}
	}
	assert.Equal(t, -1, g.nextSeat(0, (*Player).canAct))
}

func TestAdvanceStreet(t *testing.T) {
	g := bettingGame(100, 100)
	require.NoError(t, g.commit(g.Seats[0], 2))
	require.NoError(t, g.commit(g.Seats[1], 2))
	g.CurrentBet = 2

	g.advanceStreet()
	assert.Equal(t, Flop, g.State)
	assert.Zero(t, g.CurrentBet)
	assert.Zero(t, g.Seats[0].Committed)
	assert.Equal(t, chips.Amount(2), g.Seats[0].TotalCommitted)
	assert.Equal(t, 1, g.ActionCursor)

	g.State = River
	g.advanceStreet()
	assert.Equal(t, Showdown, g.State)
	assert.Equal(t, -1, g.ActionCursor)
}
