// Package casino is the slot machine and the play-money balance book.
// Balances derive from activity points (ten balance per point) plus the
// wins and losses stored in a JSON sidecar, so a user can never zero
// out their activity-based floor by gambling.
package casino

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/modules"
)

const (
	MinBet = 1
	MaxBet = 100000

	Rows    = 3
	Columns = 3

	reelSize          = 32
	balanceMultiplier = 10

	// one spin per channel at a time
	channelCooldown = 30 * time.Second
)

// winLines are the five pay lines as (column, row) positions.
var winLines = map[string][Columns][2]int{
	"1": {{0, 1}, {1, 1}, {2, 1}},
	"2": {{0, 2}, {1, 2}, {2, 2}},
	"3": {{0, 0}, {1, 0}, {2, 0}},
	"4": {{0, 2}, {1, 1}, {2, 0}},
	"5": {{0, 0}, {1, 1}, {2, 2}},
}

// Chip is one reel symbol. A negative-win joker line is the jackpot
// nobody wants: winning it gets you banned.
type Chip struct {
	Name       string `json:"name"`
	Emoji      string `json:"emoji"`
	Prevalence int    `json:"prevalence"`
	Win        int    `json:"win"`
	Joker      bool   `json:"joker"`
}

// defaultChips fill all 32 reel positions.
var defaultChips = []Chip{
	{Name: "kirsikka", Emoji: "🍒", Prevalence: 8, Win: 2},
	{Name: "sitruuna", Emoji: "🍋", Prevalence: 7, Win: 3},
	{Name: "meloni", Emoji: "🍉", Prevalence: 6, Win: 5},
	{Name: "kello", Emoji: "🔔", Prevalence: 5, Win: 8},
	{Name: "timantti", Emoji: "💎", Prevalence: 3, Win: 20},
	{Name: "seiska", Emoji: "🎰", Prevalence: 2, Win: 50},
	{Name: "pommi", Emoji: "💣", Prevalence: 1, Win: -100, Joker: true},
}

type balanceEntry struct {
	Points       int `json:"points"`
	ReducePoints int `json:"reduce_points"`
}

type Module struct {
	modules.Base
	bot  *botti.Bot
	rng  *rand.Rand
	path string

	mu           sync.Mutex
	chips        []Chip
	balances     map[snowflake.ID]*balanceEntry
	channelTimes map[snowflake.ID]time.Time
	warned       bool
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:          b,
		path:         b.DataPath("casino", "balances.json"),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		chips:        defaultChips,
		balances:     make(map[snowflake.ID]*balanceEntry),
		channelTimes: make(map[snowflake.ID]time.Time),
	}
}

func (m *Module) Name() string { return "casino" }

func (m *Module) OnReady() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chips []Chip
	if err := botti.LoadJSON(m.bot.DataPath("casino_chips.json"), &chips); err != nil {
		slog.Error("Failed to load casino chips", slog.String("type", "sys"), slog.Any("error", err))
	} else if len(chips) > 0 {
		m.chips = chips
	}

	raw := map[string]*balanceEntry{}
	if err := botti.LoadJSON(m.path, &raw); err != nil {
		slog.Error("Failed to load balances", slog.String("type", "sys"), slog.Any("error", err))
		return
	}
	if len(raw) == 0 {
		// first run: everyone starts from their activity-based floor
		for _, u := range m.bot.Registry.All() {
			floor := u.Stats.Points * balanceMultiplier
			m.balances[u.ID] = &balanceEntry{Points: floor, ReducePoints: floor}
		}
		m.saveLocked()
		return
	}
	for id, entry := range raw {
		userID, err := snowflake.Parse(id)
		if err != nil {
			continue
		}
		m.balances[userID] = entry
	}
}

func (m *Module) OnMemberJoin(e *events.GuildMemberJoin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[e.Member.User.ID]; !ok {
		m.balances[e.Member.User.ID] = &balanceEntry{}
		m.saveLocked()
	}
}

func (m *Module) OnNewDay(clock.Day) {
	m.mu.Lock()
	m.warned = false
	m.mu.Unlock()
}

// Balance is the user's spendable play money: banked wins minus the
// initial floor, plus the ever-growing activity-based floor.
func (m *Module) Balance(user *models.User) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(user)
}

func (m *Module) balanceLocked(user *models.User) int {
	entry, ok := m.balances[user.ID]
	if !ok {
		return 0
	}
	return entry.Points - entry.ReducePoints + user.Stats.Points*balanceMultiplier
}

func (m *Module) ensureEntry(user *models.User) *balanceEntry {
	entry, ok := m.balances[user.ID]
	if !ok {
		floor := user.Stats.Points * balanceMultiplier
		entry = &balanceEntry{Points: floor, ReducePoints: floor}
		m.balances[user.ID] = entry
	}
	return entry
}

// Give moves play money between users. The amount is clamped to the
// giver's balance; returns the moved amount or an error result reason.
func (m *Module) Give(from, to *models.User, amount int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balanceLocked(from) < 0 {
		return 0, false
	}
	if amount > m.balanceLocked(from) {
		amount = m.balanceLocked(from)
	}
	if amount <= 0 {
		return 0, false
	}
	m.ensureEntry(from).Points -= amount
	m.ensureEntry(to).Points += amount
	m.saveLocked()
	return amount, true
}

// RankedBalance pairs a user with their balance for the toplists.
type RankedBalance struct {
	User    *models.User
	Balance int
}

// TopBalances returns the n richest (or, with asc, the n most indebted)
// users.
func (m *Module) TopBalances(n int, asc bool) []RankedBalance {
	users := m.bot.Registry.All()
	m.mu.Lock()
	ranked := make([]RankedBalance, 0, len(users))
	for _, u := range users {
		if u.Bot {
			continue
		}
		ranked = append(ranked, RankedBalance{User: u, Balance: m.balanceLocked(u)})
	}
	m.mu.Unlock()

	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0; j-- {
			better := ranked[j].Balance > ranked[j-1].Balance
			if asc {
				better = ranked[j].Balance < ranked[j-1].Balance
			}
			if !better {
				break
			}
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (m *Module) saveLocked() {
	if m.path == "" {
		return
	}
	raw := make(map[string]*balanceEntry, len(m.balances))
	for id, entry := range m.balances {
		raw[id.String()] = entry
	}
	if err := botti.SaveJSON(m.path, raw); err != nil {
		slog.Error("Failed to save balances", slog.String("type", "sys"), slog.Any("error", err))
	}
}
