// Package love pairs members up for a day at a time. Pairings are
// symmetric, last until the next local day and are never persisted.
package love

import (
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/modules"
)

// Only members seen chatting within this window can be matched.
const recentPostWindow = 24 * time.Hour

// minPoolLevel keeps lurkers and fresh accounts out of the pool.
const minPoolLevel = 10

const maxRetries = 50

type Module struct {
	modules.Base
	bot *botti.Bot
	rng *rand.Rand

	mu    sync.Mutex
	loves map[snowflake.ID]snowflake.ID
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:   b,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		loves: make(map[snowflake.ID]snowflake.ID),
	}
}

func (m *Module) Name() string { return "love" }

func (m *Module) OnNewDay(clock.Day) {
	m.mu.Lock()
	m.loves = make(map[snowflake.ID]snowflake.ID)
	m.mu.Unlock()
}

// Match returns who userID loves today, pairing them with a random
// eligible member on first call. A user whose whole pool is already
// taken ends up loving themselves.
func (m *Module) Match(userID snowflake.ID, now time.Time) snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if love, ok := m.loves[userID]; ok {
		return love
	}

	pool := m.pool(now)
	if len(pool) == 0 {
		m.loves[userID] = userID
		return userID
	}

	love := pool[m.rng.Intn(len(pool))].ID
	for i := 0; i < maxRetries; i++ {
		if _, taken := m.loves[love]; !taken {
			break
		}
		love = pool[m.rng.Intn(len(pool))].ID
		if i == maxRetries-1 {
			love = userID
		}
	}

	m.loves[userID] = love
	m.loves[love] = userID
	return love
}

// Pairing reports the current match without creating one.
func (m *Module) Pairing(userID snowflake.ID) (snowflake.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	love, ok := m.loves[userID]
	return love, ok
}

func (m *Module) pool(now time.Time) []*models.User {
	var eligible []*models.User
	for _, user := range m.bot.Registry.All() {
		if !user.IsInGuild || user.Bot || user.Level <= minPoolLevel {
			continue
		}
		if now.Unix()-user.Stats.LastPostTime >= int64(recentPostWindow.Seconds()) {
			continue
		}
		eligible = append(eligible, user)
	}
	return eligible
}
