package duel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiceTieIsBrokenByExtraFlip(t *testing.T) {
	rng := &scriptRNG{vals: []int{0, 1, 2, 2, 1, 0, 1}}
	res := draw(rng, GameDice)
	require.True(t, res.Dice.TieBreak)
	require.Equal(t, Right, res.Winner)
	require.Equal(t, [3]int{1, 2, 3}, res.Dice.Left)
	require.Equal(t, [3]int{3, 2, 1}, res.Dice.Right)

	rng = &scriptRNG{vals: []int{5, 5, 5, 0, 0, 0}}
	res = draw(rng, GameDice)
	require.False(t, res.Dice.TieBreak)
	require.Equal(t, Left, res.Winner)
}

func TestWheelEvenSegmentGoesLeft(t *testing.T) {
	res := draw(&scriptRNG{vals: []int{4}}, GameWheel)
	require.Equal(t, Left, res.Winner)
	require.Equal(t, 4, *res.Wheel)

	res = draw(&scriptRNG{vals: []int{11}}, GameWheel)
	require.Equal(t, Right, res.Winner)
}

func TestCoinFaces(t *testing.T) {
	require.Equal(t, "HEADS", draw(&scriptRNG{vals: []int{0}}, GameCoin).Coin)
	res := draw(&scriptRNG{vals: []int{1}}, GameCoin)
	require.Equal(t, "TAILS", res.Coin)
	require.Equal(t, Right, res.Winner)
}

func TestRoundsTarget(t *testing.T) {
	require.Equal(t, 2, BestOf3.Target())
	require.Equal(t, 3, BestOf5.Target())
	require.Equal(t, 3, RaceTo3.Target())
	require.Equal(t, 5, RaceTo5.Target())
	require.Zero(t, Rounds("bo7").Target())
}
