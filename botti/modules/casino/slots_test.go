package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	cherry = Chip{Name: "kirsikka", Emoji: "🍒", Win: 2}
	lemon  = Chip{Name: "sitruuna", Emoji: "🍋", Win: 3}
	bomb   = Chip{Name: "pommi", Emoji: "💣", Win: -100, Joker: true}
)

// grid builds a column-major grid from row-major input for readability.
func grid(rows [Rows][Columns]Chip) [Columns][Rows]Chip {
	var g [Columns][Rows]Chip
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			g[col][row] = rows[row][col]
		}
	}
	return g
}

func TestCheckWinsMiddleRow(t *testing.T) {
	g := grid([Rows][Columns]Chip{
		{cherry, lemon, cherry},
		{lemon, lemon, lemon},
		{cherry, cherry, lemon},
	})
	wins := checkWins(g)
	assert.Equal(t, map[string]Chip{"1": lemon}, wins)
}

func TestCheckWinsJokerSubstitutes(t *testing.T) {
	g := grid([Rows][Columns]Chip{
		{cherry, lemon, lemon},
		{lemon, bomb, cherry},
		{cherry, cherry, lemon},
	})
	// middle row: lemon, joker, cherry -> joker can't save two
	// different references
	wins := checkWins(g)
	assert.NotContains(t, wins, "1")

	g = grid([Rows][Columns]Chip{
		{cherry, lemon, lemon},
		{lemon, bomb, lemon},
		{cherry, cherry, cherry},
	})
	wins = checkWins(g)
	assert.Equal(t, lemon, wins["1"])
	// bottom row is a clean cherry line
	assert.Equal(t, cherry, wins["2"])
}

func TestCheckWinsAllJokersPaysJoker(t *testing.T) {
	g := grid([Rows][Columns]Chip{
		{cherry, lemon, lemon},
		{bomb, bomb, bomb},
		{lemon, cherry, cherry},
	})
	wins := checkWins(g)
	assert.Equal(t, bomb, wins["1"])
}

func TestCheckPartialWins(t *testing.T) {
	g := grid([Rows][Columns]Chip{
		{cherry, lemon, lemon},
		{lemon, lemon, cherry},
		{cherry, cherry, lemon},
	})
	// middle row starts lemon-lemon but misses the third tile
	partial := checkPartialWins(g)
	assert.Contains(t, partial, "1")
	wins := checkWins(g)
	assert.NotContains(t, wins, "1")
}

func TestSpinResultBanWorthy(t *testing.T) {
	r := &SpinResult{Wins: map[string]Chip{"1": bomb}, Amount: -100 * 50}
	assert.True(t, r.BanWorthy())

	r = &SpinResult{Wins: map[string]Chip{"2": cherry}, Amount: 100}
	assert.False(t, r.BanWorthy())

	r = &SpinResult{Wins: map[string]Chip{}}
	assert.False(t, r.BanWorthy())
}

func TestReelsCarryFullPrevalence(t *testing.T) {
	m := &Module{chips: defaultChips, rng: newTestRNG()}
	reels := m.createReels()
	for col := 0; col < Columns; col++ {
		counts := map[string]int{}
		for _, chip := range reels[col] {
			counts[chip.Name]++
		}
		for _, chip := range defaultChips {
			assert.Equal(t, chip.Prevalence, counts[chip.Name], chip.Name)
		}
	}
}
