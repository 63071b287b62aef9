package casino

import (
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/database/models"
)

// SpinResult is one resolved pull of the machine.
type SpinResult struct {
	Grid        [Columns][Rows]Chip
	Wins        map[string]Chip
	PartialWins []string
	Bet         int
	Amount      int
	Balance     int
}

// Won reports whether any pay line hit.
func (r *SpinResult) Won() bool { return len(r.Wins) > 0 }

// BanWorthy reports the cursed jackpot: a joker line with a negative
// total.
func (r *SpinResult) BanWorthy() bool { return r.Won() && r.Amount < 0 }

// Render draws the visible grid as emoji rows.
func (r *SpinResult) Render() string {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			if col > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(r.Grid[col][row].Emoji)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// AcquireChannel claims the per-channel casino slot. The second return
// tells the caller to warn: repeated attempts during the same spin get
// deleted silently instead.
func (m *Module) AcquireChannel(channelID snowflake.ID) (ok bool, warn bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.channelTimes[channelID]) <= channelCooldown {
		warn = !m.warned
		m.warned = true
		return false, warn
	}
	m.channelTimes[channelID] = time.Now()
	m.warned = false
	return true, false
}

// ReleaseChannel frees the channel before the cooldown runs out.
func (m *Module) ReleaseChannel(channelID snowflake.ID) {
	m.mu.Lock()
	m.channelTimes[channelID] = time.Time{}
	m.mu.Unlock()
}

// ClampBet normalizes a requested bet against the field limits and the
// user's balance. A result below MinBet means the user cannot afford to
// play.
func (m *Module) ClampBet(user *models.User, bet int) int {
	if bet > MaxBet {
		bet = MaxBet
	}
	if bet < MinBet {
		bet = MinBet
	}
	if balance := m.Balance(user); balance < bet {
		bet = balance
	}
	return bet
}

// Play deducts the bet, spins the reels and banks the result.
func (m *Module) Play(user *models.User, bet int) *SpinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.ensureEntry(user)
	entry.Points -= bet

	grid := m.chosenTiles()
	result := &SpinResult{
		Grid:        grid,
		Wins:        checkWins(grid),
		PartialWins: checkPartialWins(grid),
		Bet:         bet,
	}
	for _, chip := range result.Wins {
		result.Amount += chip.Win * bet
	}
	entry.Points += result.Amount
	result.Balance = m.balanceLocked(user)
	m.saveLocked()
	return result
}

// createReels lays every chip out prevalence times at random positions,
// one independent reel per column.
func (m *Module) createReels() [Columns][reelSize]Chip {
	var reels [Columns][reelSize]Chip
	for col := 0; col < Columns; col++ {
		taken := make(map[int]bool, reelSize)
		for _, chip := range m.chips {
			for i := 0; i < chip.Prevalence; i++ {
				pos := m.rng.Intn(reelSize)
				for taken[pos] {
					pos = m.rng.Intn(reelSize)
				}
				taken[pos] = true
				reels[col][pos] = chip
			}
		}
	}
	return reels
}

// chosenTiles picks three distinct positions from each reel.
func (m *Module) chosenTiles() [Columns][Rows]Chip {
	reels := m.createReels()
	var grid [Columns][Rows]Chip
	for col := 0; col < Columns; col++ {
		taken := make(map[int]bool, Rows)
		for row := 0; row < Rows; row++ {
			pos := m.rng.Intn(reelSize)
			for taken[pos] {
				pos = m.rng.Intn(reelSize)
			}
			taken[pos] = true
			grid[col][row] = reels[col][pos]
		}
	}
	return grid
}

// checkWins resolves full pay lines. Jokers match anything: the first
// non-joker tile on the line becomes the reference, and an all-joker
// line pays the joker itself.
func checkWins(grid [Columns][Rows]Chip) map[string]Chip {
	wins := make(map[string]Chip)
	for line, positions := range winLines {
		if chip, ok := lineWin(grid, positions[:]); ok {
			wins[line] = chip
		}
	}
	return wins
}

// checkPartialWins resolves the first two positions of each line, used
// to tease a near-hit in the reveal message.
func checkPartialWins(grid [Columns][Rows]Chip) []string {
	var partial []string
	for line, positions := range winLines {
		if _, ok := lineWin(grid, positions[:2]); ok {
			partial = append(partial, line)
		}
	}
	return partial
}

func lineWin(grid [Columns][Rows]Chip, positions [][2]int) (Chip, bool) {
	var first *Chip
	for _, pos := range positions {
		tile := grid[pos[0]][pos[1]]
		if first == nil || (first.Joker && !tile.Joker) {
			t := tile
			first = &t
		}
		if first.Name != tile.Name && !tile.Joker {
			return Chip{}, false
		}
	}
	return *first, true
}
