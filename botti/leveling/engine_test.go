package leveling

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/registry"
)

type fakePlatform struct {
	mu       sync.Mutex
	messages []string
	channels []snowflake.ID
	added    []snowflake.ID
	removed  []snowflake.ID
}

func (f *fakePlatform) SendMessage(channelID snowflake.ID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channelID)
	f.messages = append(f.messages, content)
	return nil
}

func (f *fakePlatform) AddRole(_ snowflake.ID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, roleID)
	return nil
}

func (f *fakePlatform) RemoveRole(_ snowflake.ID, roleID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, roleID)
	return nil
}

func (f *fakePlatform) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

const testChannel = snowflake.ID(555)

func newTestEngine(t *testing.T) (*Engine, *fakePlatform, *registry.Registry) {
	t.Helper()
	db, err := database.New(context.Background(), database.DBConfig{
		Path: "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitializeSchema(context.Background()))

	store := database.NewStore(db)
	reg := registry.New(store)
	platform := &fakePlatform{}
	engine := NewEngine(Config{
		GeneralChannelID: testChannel,
		LevelChannelIDs:  []snowflake.ID{testChannel},
		LevelRoles: []LevelRole{
			{Level: 2, RoleID: snowflake.ID(9002)},
			{Level: 5, RoleID: snowflake.ID(9005)},
		},
		Location: time.UTC,
	}, reg, store, platform, i18n.Default())
	engine.SetDaylist([]clock.Day{clock.UTCDayOf(time.Now())})
	return engine, platform, reg
}

func inbound(id int64, userID snowflake.ID, content string, at time.Time) InboundMessage {
	return InboundMessage{
		ID:         snowflake.ID(id),
		AuthorID:   userID,
		AuthorName: fmt.Sprintf("user-%d", userID),
		ChannelID:  testChannel,
		Content:    content,
		CreatedAt:  at,
	}
}

func TestHandleMessageScoresOnce(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.HandleMessage(inbound(1, 1, "moro kaikki mitä kuuluu", at), false)
	user := reg.GetByID(1)
	require.NotNil(t, user)
	// len("moro kaikki mitä kuuluu") = 23 runes -> 23/2+3 = 14
	assert.Equal(t, 14, user.Stats.Points)
	assert.Equal(t, 14, user.Stats.ActivityPointsToday)

	// identical content inside the same bucket earns nothing
	engine.HandleMessage(inbound(2, 1, "moro kaikki mitä kuuluu", at.Add(time.Minute)), false)
	assert.Equal(t, 14, user.Stats.Points)

	// a different user repeating it earns nothing either
	engine.HandleMessage(inbound(3, 2, "moro kaikki mitä kuuluu", at.Add(time.Minute)), false)
	assert.Equal(t, 0, reg.GetByID(2).Stats.Points)
}

func TestHandleMessageAttachmentBypassesDedup(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.HandleMessage(inbound(1, 1, "katso tää", at), false)
	user := reg.GetByID(1)
	first := user.Stats.Points
	require.Positive(t, first)

	withFile := inbound(2, 1, "katso tää", at.Add(time.Minute))
	withFile.Attachments = 1
	engine.HandleMessage(withFile, false)
	assert.Greater(t, user.Stats.Points, first)
	assert.Equal(t, 1, user.Stats.FilesSent)
}

func TestHandleMessageBucketRolloverResetsDedup(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.HandleMessage(inbound(1, 1, "sama viesti taas", at), false)
	user := reg.GetByID(1)
	first := user.Stats.Points

	// next five-minute bucket, the same content scores again
	engine.HandleMessage(inbound(2, 1, "sama viesti taas", at.Add(5*time.Minute)), false)
	assert.Equal(t, first*2, user.Stats.Points)
}

func TestHandleMessageBucketCap(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	// each long unique message asks for 67 points; the bucket stops at 256
	for i := 0; i < 10; i++ {
		engine.HandleMessage(inbound(int64(i+1), 1, fmt.Sprintf("%d %s", i, long), at.Add(time.Duration(i)*time.Second)), false)
	}
	assert.Equal(t, MaxPointsPerBucket, reg.GetByID(1).Stats.Points)
}

func TestHandleMessageBotNeverScores(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := inbound(1, 42, "beep boop olen botti", at)
	msg.AuthorBot = true
	engine.HandleMessage(msg, false)
	assert.Equal(t, 0, reg.GetByID(42).Stats.Points)
}

func TestHandleMessageBotContentNotRemembered(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	botMsg := inbound(1, 42, "päivän tilastot tässä", at)
	botMsg.AuthorBot = true
	engine.HandleMessage(botMsg, false)

	// a human repeating the bot's wording in the same bucket still scores
	engine.HandleMessage(inbound(2, 1, "päivän tilastot tässä", at.Add(time.Minute)), false)
	assert.Positive(t, reg.GetByID(1).Stats.Points)
}

func TestHandleMessageIgnoresOtherChannels(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := inbound(1, 1, "väärällä kanavalla", at)
	msg.ChannelID = snowflake.ID(777)
	engine.HandleMessage(msg, false)
	assert.Nil(t, reg.GetByID(1))
}

func TestBackfillRunsOnOwnTrack(t *testing.T) {
	engine, platform, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// backfill fills its bucket; live traffic in the same wall-clock
	// bucket must still score
	engine.HandleMessage(inbound(1, 1, "historiaa", at), true)
	engine.HandleMessage(inbound(2, 2, "historiaa", at), false)
	assert.Positive(t, reg.GetByID(2).Stats.Points)
	// backfill never announces
	assert.Zero(t, platform.messageCount())
}

func TestBackfillBucketRolloverFlushes(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.HandleMessage(inbound(1, 1, "vanhaa historiaa", at), true)
	want := reg.GetByID(1).Stats.Points
	require.Positive(t, want)

	// the next backfill bucket closes the previous one and writes it out
	engine.HandleMessage(inbound(2, 2, "lisää historiaa", at.Add(5*time.Minute)), true)

	reader, err := database.New(context.Background(), database.DBConfig{
		Path: "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	store := database.NewStore(reader)

	require.Eventually(t, func() bool {
		users, err := store.LoadUsers(context.Background())
		if err != nil {
			return false
		}
		for _, u := range users {
			if u.ID == snowflake.ID(1) && u.Stats != nil && u.Stats.Points == want {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLevelUpAnnouncesAndGrantsRoles(t *testing.T) {
	engine, platform, reg := newTestEngine(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// preload a user just below level 2 (80+165=245 points to reach it)
	user := reg.AddIfNotExists(registry.MemberInfo{ID: 1, Name: "grinderi", InGuild: true})
	user.Stats.Points = 244
	user.RefreshLevel()
	require.Equal(t, 1, user.Level)

	engine.HandleMessage(inbound(1, 1, "nyt noustaan tasolle kaks", at), false)
	require.Equal(t, 2, user.Level)
	assert.Equal(t, []snowflake.ID{snowflake.ID(9002)}, platform.added)
	require.Equal(t, 1, platform.messageCount())
	assert.Contains(t, platform.messages[0], "tasolle")
}

func TestVoiceSessionActivity(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	reg.AddIfNotExists(registry.MemberInfo{ID: 1, Name: "eka", InGuild: true})
	reg.AddIfNotExists(registry.MemberInfo{ID: 2, Name: "toka", InGuild: true})

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	voice := snowflake.ID(800)

	// alone in voice: nothing accrues
	engine.HandleVoiceStateUpdate(1, voice, start)
	assert.Equal(t, 1, engine.VoiceRoomSize())

	// a second user makes the room active for both
	engine.HandleVoiceStateUpdate(2, voice, start.Add(time.Minute))

	// both leave after ten active minutes
	engine.HandleVoiceStateUpdate(1, 0, start.Add(11*time.Minute))
	engine.HandleVoiceStateUpdate(2, 0, start.Add(11*time.Minute))
	assert.Equal(t, 0, engine.VoiceRoomSize())

	first := reg.GetByID(1)
	second := reg.GetByID(2)
	assert.Equal(t, 600, first.Stats.TimeInVoice)
	assert.Equal(t, 60, first.Stats.Points)
	assert.Equal(t, 600, second.Stats.TimeInVoice)
	assert.Equal(t, 60, second.Stats.Points)
}

func TestVoiceAFKChannelNotTracked(t *testing.T) {
	engine, _, reg := newTestEngine(t)
	engine.cfg.AFKChannelID = snowflake.ID(666)
	reg.AddIfNotExists(registry.MemberInfo{ID: 1, Name: "nukkuja", InGuild: true})
	reg.AddIfNotExists(registry.MemberInfo{ID: 2, Name: "valvoja", InGuild: true})

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	voice := snowflake.ID(800)
	engine.HandleVoiceStateUpdate(1, voice, start)
	engine.HandleVoiceStateUpdate(2, voice, start)

	// moving to AFK ends the mover's session and pauses the remaining one
	engine.HandleVoiceStateUpdate(1, engine.cfg.AFKChannelID, start.Add(5*time.Minute))
	assert.Equal(t, 1, engine.VoiceRoomSize())
	assert.Equal(t, 300, reg.GetByID(1).Stats.TimeInVoice)

	// the remaining user leaves much later but only the shared five
	// minutes were active
	engine.HandleVoiceStateUpdate(2, 0, start.Add(60*time.Minute))
	assert.Equal(t, 300, reg.GetByID(2).Stats.TimeInVoice)
}

func TestUserStreak(t *testing.T) {
	today := clock.Day{Year: 2024, Month: 3, Day: 10}
	daylist := []clock.Day{
		{Year: 2024, Month: 3, Day: 6},
		{Year: 2024, Month: 3, Day: 7},
		{Year: 2024, Month: 3, Day: 8},
		{Year: 2024, Month: 3, Day: 9},
		today,
	}
	user := &models.User{ID: 1, Stats: models.NewStats(1)}
	user.Stats.AddActivityDate(&models.ActivityDate{UserID: 1, Year: 2024, Month: 3, Day: 9, MessagePoints: 10})
	user.Stats.AddActivityDate(&models.ActivityDate{UserID: 1, Year: 2024, Month: 3, Day: 8, MessagePoints: 5})
	// a gap on the 7th breaks the walk
	user.Stats.AddActivityDate(&models.ActivityDate{UserID: 1, Year: 2024, Month: 3, Day: 6, MessagePoints: 5})

	assert.Equal(t, 3, UserStreak(user, daylist))
}

func TestActivesExcludesToday(t *testing.T) {
	today := clock.Day{Year: 2024, Month: 3, Day: 10}
	yesterday := clock.Day{Year: 2024, Month: 3, Day: 9}
	daylist := []clock.Day{yesterday, today}

	steady := &models.User{ID: 1, Name: "tasainen", Stats: models.NewStats(1)}
	steady.Stats.AddActivityDate(&models.ActivityDate{UserID: 1, Year: 2024, Month: 3, Day: 9, MessagePoints: 100})

	burst := &models.User{ID: 2, Name: "pyrähdys", Stats: models.NewStats(2)}
	burst.Stats.ActivityPointsToday = 500

	users := []*models.User{steady, burst}
	ranked := Actives(users, daylist, false)
	require.Len(t, ranked, 2)
	assert.Equal(t, steady, ranked[0].User)
	assert.Equal(t, 100, ranked[0].Points)
	assert.Equal(t, 0, ranked[1].Points)

	// with the running day included the burst takes the lead
	ranked = Actives(users, daylist, true)
	assert.Equal(t, burst, ranked[0].User)
	assert.Equal(t, 500, ranked[0].Points)
}

func TestLast14DayPointsIncludesToday(t *testing.T) {
	today := clock.Day{Year: 2024, Month: 3, Day: 10}
	yesterday := clock.Day{Year: 2024, Month: 3, Day: 9}
	daylist := []clock.Day{yesterday, today}

	user := &models.User{ID: 1, Stats: models.NewStats(1)}
	user.Stats.AddActivityDate(&models.ActivityDate{UserID: 1, Year: 2024, Month: 3, Day: 9, MessagePoints: 40})
	user.Stats.ActivityPointsToday = 7
	assert.Equal(t, 47, Last14DayPoints(user, daylist))
}
