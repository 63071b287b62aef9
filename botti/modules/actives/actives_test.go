package actives

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/registry"
)

type fakePlatform struct {
	mu      sync.Mutex
	added   map[snowflake.ID][]snowflake.ID
	removed map[snowflake.ID][]snowflake.ID
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		added:   make(map[snowflake.ID][]snowflake.ID),
		removed: make(map[snowflake.ID][]snowflake.ID),
	}
}

func (f *fakePlatform) SendMessage(snowflake.ID, string) error { return nil }

func (f *fakePlatform) AddRole(userID snowflake.ID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[userID] = append(f.added[userID], roleID)
	return nil
}

func (f *fakePlatform) RemoveRole(userID snowflake.ID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[userID] = append(f.removed[userID], roleID)
	return nil
}

const (
	activeRole = snowflake.ID(7001)
	squadRole  = snowflake.ID(7002)
	squadBase  = snowflake.ID(7003)
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestModule(t *testing.T) (*Module, *fakePlatform, *registry.Registry) {
	t.Helper()
	db, err := database.New(context.Background(), database.DBConfig{
		Path: "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitializeSchema(context.Background()))

	store := database.NewStore(db)
	reg := registry.New(store)
	platform := newFakePlatform()
	engine := leveling.NewEngine(leveling.Config{Location: time.UTC}, reg, store, platform, i18n.Default())

	// two closed days plus the open one
	days := []clock.Day{
		clock.UTCDayOf(now.AddDate(0, 0, -2)),
		clock.UTCDayOf(now.AddDate(0, 0, -1)),
		clock.UTCDayOf(now),
	}
	engine.SetDaylist(days)

	b := &botti.Bot{Registry: reg, Engine: engine}
	b.Cfg.Guild.ActiveRole = activeRole
	b.Cfg.Guild.ActiveSquadRole = squadRole
	b.Cfg.Guild.SquadRoles = []snowflake.ID{squadBase}

	m := &Module{bot: b, platform: platform, now: func() time.Time { return now }}
	return m, platform, reg
}

func member(reg *registry.Registry, id snowflake.ID, roles ...snowflake.ID) *models.User {
	u := reg.AddIfNotExists(registry.MemberInfo{ID: id, Name: "u", InGuild: true, Roles: roles})
	u.Stats.LastPostTime = now.Add(-time.Hour).Unix()
	return u
}

func scoreDay(u *models.User, daysAgo int, points int) {
	day := clock.UTCDayOf(now.AddDate(0, 0, -daysAgo))
	u.Stats.ActivityDates[day] = &models.Points{MessagePoints: points}
}

func TestSyncGrantsAndRevokesActiveRole(t *testing.T) {
	m, platform, reg := newTestModule(t)

	busy := member(reg, 1)
	scoreDay(busy, 1, 120)
	stale := member(reg, 2, activeRole)

	m.SyncRoles()

	assert.Equal(t, []snowflake.ID{activeRole}, platform.added[1])
	assert.Equal(t, []snowflake.ID{activeRole}, platform.removed[2])
	assert.True(t, busy.HasRole(activeRole))
	assert.False(t, stale.HasRole(activeRole))
}

func TestSyncRevokesIdleSquad(t *testing.T) {
	m, platform, reg := newTestModule(t)

	idle := member(reg, 1, squadBase, squadRole)
	idle.Stats.LastPostTime = now.Add(-4 * 24 * time.Hour).Unix()
	scoreDay(idle, 1, 50)

	demoted := member(reg, 2, squadRole)
	scoreDay(demoted, 1, 50)

	fine := member(reg, 3, squadBase, squadRole)
	scoreDay(fine, 1, 50)

	m.SyncRoles()

	assert.Contains(t, platform.removed[1], squadRole, "idle squad member loses the role")
	assert.Contains(t, platform.removed[2], squadRole, "losing the squad role loses the active one")
	assert.NotContains(t, platform.removed[3], squadRole)
}
