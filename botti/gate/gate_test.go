package gate

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"

	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
)

var (
	generalChannel = snowflake.ID(100)
	botChannel     = snowflake.ID(200)
	adminRole      = snowflake.ID(300)
	squadRole      = snowflake.ID(400)
)

func newTestGate() *Gate {
	return New(Config{
		GeneralChannelIDs: []snowflake.ID{generalChannel},
		BotChannelID:      botChannel,
		CommandsPerDay:    2,
		MinLevel:          10,
		AdminRoleIDs:      []snowflake.ID{adminRole},
		SquadRoleIDs:      []snowflake.ID{squadRole},
	}, i18n.Default())
}

func leveledUser(id snowflake.ID, level int, roles ...snowflake.ID) *models.User {
	u := &models.User{ID: id, Stats: models.NewStats(id), Level: level}
	u.SetRoles(roles)
	return u
}

func TestDailyBudget(t *testing.T) {
	g := newTestGate()
	user := leveledUser(1, 20)

	assert.True(t, g.Check(user, generalChannel, "rank", Options{}).Allowed)
	assert.True(t, g.Check(user, generalChannel, "rank", Options{}).Allowed)

	// over budget: refused with an explanation
	res := g.Check(user, generalChannel, "rank", Options{})
	assert.False(t, res.Allowed)
	assert.NotEmpty(t, res.Reply)

	// far over budget: refused silently
	res = g.Check(user, generalChannel, "rank", Options{})
	assert.False(t, res.Allowed)
	assert.Empty(t, res.Reply)

	// other commands have their own budget
	assert.True(t, g.Check(user, generalChannel, "top", Options{}).Allowed)
}

func TestBotChannelHasTripleBudget(t *testing.T) {
	g := newTestGate()
	user := leveledUser(1, 20)

	for i := 0; i < 6; i++ {
		assert.True(t, g.Check(user, botChannel, "rank", Options{}).Allowed, "use %d", i)
	}
	assert.False(t, g.Check(user, botChannel, "rank", Options{}).Allowed)
}

func TestResetDayClearsBudgets(t *testing.T) {
	g := newTestGate()
	user := leveledUser(1, 20)
	for i := 0; i < 3; i++ {
		g.Check(user, generalChannel, "rank", Options{})
	}
	g.ResetDay()
	assert.True(t, g.Check(user, generalChannel, "rank", Options{}).Allowed)
}

func TestCooldown(t *testing.T) {
	g := newTestGate()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	user := leveledUser(1, 20)
	opts := Options{Cooldown: time.Minute, Uncounted: true}

	assert.True(t, g.Check(user, botChannel, "slots", opts).Allowed)

	res := g.Check(user, botChannel, "slots", opts)
	assert.False(t, res.Allowed)
	assert.NotEmpty(t, res.Reply)

	now = now.Add(2 * time.Minute)
	assert.True(t, g.Check(user, botChannel, "slots", opts).Allowed)
}

func TestLowLevelBlockedInGeneral(t *testing.T) {
	g := newTestGate()
	rookie := leveledUser(1, 3)

	res := g.Check(rookie, generalChannel, "rank", Options{})
	assert.False(t, res.Allowed)

	// the bot channel is open to rookies
	assert.True(t, g.Check(rookie, botChannel, "rank", Options{}).Allowed)

	// unless a command denies rookies everywhere
	assert.False(t, g.Check(rookie, botChannel, "love", Options{DenyLowLevels: true}).Allowed)

	// squad membership lifts the restriction
	squaddie := leveledUser(2, 3, squadRole)
	assert.True(t, g.Check(squaddie, generalChannel, "rank", Options{}).Allowed)
}

func TestRequireAdmin(t *testing.T) {
	g := newTestGate()
	assert.False(t, g.Check(leveledUser(1, 50), generalChannel, "ban", Options{RequireAdmin: true}).Allowed)
	assert.True(t, g.Check(leveledUser(2, 50, adminRole), generalChannel, "ban", Options{RequireAdmin: true}).Allowed)
}
