// Package leveling scores guild activity into points and levels. One
// message can earn points once per five-minute bucket, repeated content
// inside a bucket earns nothing, and a single user tops out at
// MaxPointsPerBucket per bucket.
package leveling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/registry"
)

// Platform is the Discord surface the engine touches. Kept minimal so
// tests can drive the engine without a gateway connection.
type Platform interface {
	SendMessage(channelID snowflake.ID, content string) error
	AddRole(userID snowflake.ID, roleID snowflake.ID) error
	RemoveRole(userID snowflake.ID, roleID snowflake.ID) error
}

// LevelRole maps a level threshold to the guild role granted at it.
type LevelRole struct {
	Level  int
	RoleID snowflake.ID
}

// Config carries the guild wiring the engine needs.
type Config struct {
	GuildID          snowflake.ID
	GeneralChannelID snowflake.ID
	LevelChannelIDs  []snowflake.ID
	AFKChannelID     snowflake.ID
	LevelRoles       []LevelRole // ascending by Level
	IgnoredUserIDs   []snowflake.ID
	Location         *time.Location
}

// InboundMessage is a gateway message reduced to what scoring needs.
type InboundMessage struct {
	ID               snowflake.ID
	AuthorID         snowflake.ID
	AuthorName       string
	AuthorIdentifier string
	AuthorBot        bool
	ChannelID        snowflake.ID
	Content          string
	Attachments      int
	JumpURL          string
	ReferenceID      snowflake.ID
	MentionsEveryone bool
	MentionedUserID  snowflake.ID
	CreatedAt        time.Time
	Reactions        []InboundReaction
}

// InboundReaction is a tracked emoji reaction on an inbound message.
type InboundReaction struct {
	EmojiID snowflake.ID
	Count   int
}

// Engine owns the scoring state: the live and backfill bucket tracks,
// the activity daylist and the voice room.
type Engine struct {
	cfg      Config
	registry *registry.Registry
	store    *database.Store
	platform Platform
	loc      *i18n.Catalog

	mu        sync.Mutex
	live      *ScoringTrack
	backfill  *ScoringTrack
	voiceRoom []*models.User
	daylist   []clock.Day
	startDay  clock.Day
	launching bool
}

func NewEngine(cfg Config, reg *registry.Registry, store *database.Store, platform Platform, catalog *i18n.Catalog) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		cfg:      cfg,
		registry: reg,
		store:    store,
		platform: platform,
		loc:      catalog,
		live:     NewScoringTrack(),
		backfill: NewScoringTrack(),
		startDay: clock.DayOf(time.Now().In(cfg.Location)),
	}
}

// SetLaunching toggles boot mode. While launching the engine scores
// silently: no level-up or streak announcements.
func (e *Engine) SetLaunching(v bool) {
	e.mu.Lock()
	e.launching = v
	e.mu.Unlock()
}

// SetDaylist replaces the known activity days.
func (e *Engine) SetDaylist(days []clock.Day) {
	e.mu.Lock()
	e.daylist = append(e.daylist[:0], days...)
	e.mu.Unlock()
}

// Daylist returns a copy of the known activity days, oldest first. The
// final entry is always the currently open day.
func (e *Engine) Daylist() []clock.Day {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]clock.Day(nil), e.daylist...)
}

// EnsureDay appends a day to the daylist unless already present.
func (e *Engine) EnsureDay(day clock.Day) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.daylist {
		if d == day {
			return
		}
	}
	e.daylist = append(e.daylist, day)
}

// HandleMessage scores one message. Backfilled history runs on its own
// bucket track so a replay cannot eat the live bucket budget, and never
// triggers announcements.
func (e *Engine) HandleMessage(msg InboundMessage, backfill bool) {
	if !e.isLevelChannel(msg.ChannelID) {
		return
	}
	user := e.registry.AddIfNotExists(registry.MemberInfo{
		ID:          msg.AuthorID,
		Name:        msg.AuthorName,
		Identifier:  msg.AuthorIdentifier,
		Bot:         msg.AuthorBot,
		FromMessage: true,
	})
	// bot traffic is registered but never scored, remembered or stored
	if user.Bot {
		return
	}

	normalized := Normalize(msg.Content)
	isCmd := IsBotCommand(msg.Content)
	isGif := IsGif(msg.Content)
	hasEmoji := HasEmoji(msg.Content)
	ts := msg.CreatedAt.Unix()

	e.mu.Lock()
	track := e.live
	bucketTime := msg.CreatedAt.In(e.cfg.Location)
	if backfill {
		track = e.backfill
		bucketTime = msg.CreatedAt.UTC()
	}

	if track.Rollover(clock.Bucket(bucketTime)) {
		e.store.QueueDirtyStats(e.registry.All())
		go e.flush()
	}

	firstToday := user.Stats.ActivityPointsToday == 0

	delta := 0
	levelChanged := false
	length := ScoredLength(normalized, msg.Attachments, isCmd)
	if msg.Attachments > 0 || !track.Seen(normalized) {
		delta = track.Credit(user.ID, CandidatePoints(length))
		st := user.Stats
		st.FilesSent += msg.Attachments
		st.TotalPostLength += length
		if isCmd {
			st.BotCommandCount++
		}
		if isGif {
			st.GifCount++
		}
		if hasEmoji {
			st.EmojiCount++
		}
		if st.FirstPostTime == 0 || ts < st.FirstPostTime {
			st.FirstPostTime = ts
		}
		if ts > st.LastPostTime {
			st.LastPostTime = ts
		}
		st.ShouldUpdate = true
		if delta > 0 {
			levelChanged = user.AddPoints(delta)
		}
	}
	track.Remember(normalized)

	if msg.MentionedUserID != 0 && msg.MentionedUserID != user.ID {
		if mentioned := e.registry.GetByID(msg.MentionedUserID); mentioned != nil {
			mentioned.Stats.MentionedTimes++
			mentioned.Stats.ShouldUpdate = true
		}
	}

	quiet := backfill || e.launching
	streak := 0
	if firstToday && delta > 0 {
		streak = UserStreak(user, e.daylist)
		if streak > user.Stats.LongestStreak {
			user.Stats.LongestStreak = streak
			user.Stats.ShouldUpdate = true
		}
		// the boot day's first messages are not a streak continuation
		// worth celebrating
		if clock.DayOf(time.Now().In(e.cfg.Location)) == e.startDay {
			streak = 0
		}
	}
	e.mu.Unlock()

	e.store.AddMessage(&models.Message{
		ID:               msg.ID,
		UserID:           user.ID,
		Attachments:      msg.Attachments,
		JumpURL:          msg.JumpURL,
		Reference:        msg.ReferenceID,
		CreatedAt:        ts,
		MentionsEveryone: msg.MentionsEveryone,
		MentionedUserID:  msg.MentionedUserID,
		Length:           length,
		IsGif:            isGif,
		HasEmoji:         hasEmoji,
		IsBotCommand:     isCmd,
		ActivityPoints:   delta,
	})
	for _, r := range msg.Reactions {
		e.store.AddReaction(&models.Reaction{MessageID: msg.ID, EmojiID: r.EmojiID, Count: r.Count})
	}

	if quiet {
		return
	}
	if levelChanged && user.Level > 1 {
		e.RefreshLevelRoles(user)
		e.sendf(msg.ChannelID, i18n.NewLevel, Mention(user.ID), user.Level)
	}
	if streak > 1 {
		e.sendf(e.cfg.GeneralChannelID, i18n.NewStreak, Mention(user.ID), streak)
	}
}

// RefreshLevelRoles reconciles the user's level roles against the level
// ladder: every role at or below the current level is granted, higher
// ones are taken away.
func (e *Engine) RefreshLevelRoles(user *models.User) {
	if user.Bot || !user.IsInGuild || e.isIgnored(user.ID) {
		return
	}
	for _, lr := range e.cfg.LevelRoles {
		has := user.HasRole(lr.RoleID)
		switch {
		case lr.Level <= user.Level && !has:
			if err := e.platform.AddRole(user.ID, lr.RoleID); err != nil {
				slog.Error("Failed to grant level role",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.String("role_id", lr.RoleID.String()),
					slog.Any("error", err))
				continue
			}
			user.Roles = append(user.Roles, lr.RoleID)
		case lr.Level > user.Level && has:
			if err := e.platform.RemoveRole(user.ID, lr.RoleID); err != nil {
				slog.Error("Failed to revoke level role",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.String("role_id", lr.RoleID.String()),
					slog.Any("error", err))
				continue
			}
			removeRole(user, lr.RoleID)
		}
	}
}

// FlushNow queues every dirty stats row and writes all pending changes.
func (e *Engine) FlushNow(ctx context.Context) error {
	e.store.QueueDirtyStats(e.registry.All())
	return e.store.Flush(ctx)
}

func (e *Engine) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.store.Flush(ctx); err != nil {
		slog.Error("Failed to flush pending changes",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
}

func (e *Engine) sendf(channelID snowflake.ID, key i18n.Key, args ...any) {
	if err := e.platform.SendMessage(channelID, e.loc.Getf(key, args...)); err != nil {
		slog.Error("Failed to send message",
			slog.String("type", "sys"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

func (e *Engine) isLevelChannel(id snowflake.ID) bool {
	if len(e.cfg.LevelChannelIDs) == 0 {
		return true
	}
	for _, c := range e.cfg.LevelChannelIDs {
		if c == id {
			return true
		}
	}
	return false
}

func (e *Engine) isIgnored(id snowflake.ID) bool {
	for _, u := range e.cfg.IgnoredUserIDs {
		if u == id {
			return true
		}
	}
	return false
}

func removeRole(user *models.User, roleID snowflake.ID) {
	for i, r := range user.Roles {
		if r == roleID {
			user.Roles = append(user.Roles[:i], user.Roles[i+1:]...)
			return
		}
	}
}

// Mention formats a user mention.
func Mention(id snowflake.ID) string {
	return fmt.Sprintf("<@%s>", id)
}
