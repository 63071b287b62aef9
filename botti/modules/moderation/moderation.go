// Package moderation handles timed bans, the muted role and timeouts.
// Bans come from the slash command, from a red circle reaction or from
// outside the bot; every one gets an expiry and is lifted on schedule.
package moderation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules"
)

const (
	DefaultBanHours = 12
	emojiBanHours   = 3
	muteHours       = 3
	MaxBanHours     = 18
	MinBanHours     = 1
)

const triggerEmoji = "🔴"

// Expiry sweeps are cheap but there is no point running one per
// message in a busy channel.
const checkInterval = 5 * time.Second

const reasonMaxLen = 256

type Module struct {
	modules.Base
	bot  *botti.Bot
	path string

	// InUserChannel marks channels that run their own red circle
	// moderation; reactions there never turn into guild bans. Nil
	// means no such channels exist.
	InUserChannel func(channelID snowflake.ID) bool

	mu          sync.Mutex
	bans        map[snowflake.ID]time.Time
	mutes       map[snowflake.ID]time.Time
	timeouts    map[snowflake.ID]time.Time
	lastChecked time.Time

	now func() time.Time
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:      b,
		path:     b.DataPath("bans.json"),
		bans:     make(map[snowflake.ID]time.Time),
		mutes:    make(map[snowflake.ID]time.Time),
		timeouts: make(map[snowflake.ID]time.Time),
		now:      time.Now,
	}
}

func (m *Module) Name() string { return "moderation" }

func (m *Module) OnReady() {
	m.mu.Lock()
	raw := map[string]int64{}
	if err := botti.LoadJSON(m.path, &raw); err != nil {
		slog.Error("Failed to load bans", slog.String("type", "sys"), slog.Any("error", err))
	}
	for id, expiry := range raw {
		userID, err := snowflake.Parse(id)
		if err != nil {
			continue
		}
		m.bans[userID] = time.Unix(expiry, 0)
	}
	m.mu.Unlock()

	m.reconcileBans()
	m.CheckExpirations(m.now())
}

// reconcileBans drops stale entries for users unbanned while the bot
// was down and adopts bans issued by hand, giving those the default
// length.
func (m *Module) reconcileBans() {
	bans, err := m.bot.Client.Rest().GetBans(m.bot.Cfg.Guild.ID, 0, 0, 0)
	if err != nil {
		slog.Error("Failed to fetch ban list", slog.String("type", "sys"), slog.Any("error", err))
		return
	}
	live := make(map[snowflake.ID]bool, len(bans))
	for _, ban := range bans {
		live[ban.User.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.bans {
		if !live[id] {
			delete(m.bans, id)
		}
	}
	for id := range live {
		if _, tracked := m.bans[id]; !tracked {
			m.bans[id] = m.now().Add(DefaultBanHours * time.Hour)
		}
	}
	m.saveLocked()
}

// BanResult tells the command layer why a ban was refused.
type BanResult int

const (
	BanOK BanResult = iota
	BanProtected
	BanSelf
	BanNotInGuild
	BanFailed
)

// ClampHours folds a requested ban length into the allowed range.
func ClampHours(hours int) int {
	return max(MinBanHours, min(MaxBanHours, hours))
}

// Ban removes the target for the given hours, DMs them first and
// announces the ban on channelID.
func (m *Module) Ban(bannerID, targetID snowflake.ID, reason string, hours int, channelID snowflake.ID) BanResult {
	if m.bot.IsProtected(targetID) {
		return BanProtected
	}
	if bannerID == targetID {
		return BanSelf
	}
	target := m.bot.Registry.GetByID(targetID)
	if target == nil || !target.IsInGuild {
		return BanNotInGuild
	}
	hours = ClampHours(hours)
	if strings.TrimSpace(reason) == "" {
		reason = m.bot.Loc.Get(i18n.BanDefaultWhy)
	}

	m.bot.SendDM(targetID, m.bot.Loc.Getf(i18n.BanDM, hours, reason))
	if err := m.bot.Client.Rest().AddBan(m.bot.Cfg.Guild.ID, targetID, 0,
		rest.WithReason(reason)); err != nil {
		slog.Error("Failed to ban member",
			slog.String("type", "sys"),
			slog.String("user_id", targetID.String()),
			slog.Any("error", err))
		return BanFailed
	}

	m.mu.Lock()
	m.bans[targetID] = m.now().Add(time.Duration(hours) * time.Hour)
	m.saveLocked()
	m.mu.Unlock()

	bannerName := bannerID.String()
	if banner := m.bot.Registry.GetByID(bannerID); banner != nil {
		bannerName = banner.Name
	}
	m.bot.SendToChannel(channelID,
		m.bot.Loc.Getf(i18n.BanAnnounce, target.Name, hours, reason, bannerName))
	return BanOK
}

// OnReactionAdd bans the message author for three hours when someone
// with ban rights reacts with the red circle. The message text becomes
// the reason.
func (m *Module) OnReactionAdd(e *events.MessageReactionAdd) {
	if e.Emoji.ID != nil || e.Emoji.Name == nil || *e.Emoji.Name != triggerEmoji {
		return
	}
	if !m.bot.CanBan(e.UserID) {
		return
	}
	if m.InUserChannel != nil && m.InUserChannel(e.ChannelID) {
		return
	}
	msg, err := m.bot.Client.Rest().GetMessage(e.ChannelID, e.MessageID)
	if err != nil {
		slog.Error("Failed to fetch reacted message", slog.String("type", "sys"), slog.Any("error", err))
		return
	}
	if msg.Author.Bot {
		return
	}
	reason := msg.Content
	if runes := []rune(reason); len(runes) > reasonMaxLen {
		reason = string(runes[:reasonMaxLen])
	}
	switch m.Ban(e.UserID, msg.Author.ID, reason, emojiBanHours, e.ChannelID) {
	case BanProtected:
		m.bot.SendToChannel(e.ChannelID, m.bot.Loc.Getf(i18n.BanCantBan, msg.Author.Username))
	case BanFailed:
		m.bot.SendToChannel(e.ChannelID, m.bot.Loc.Get(i18n.OnError))
	}
}

// OnMessage runs the expiry sweep and enforces the general channel
// policies: no links from fresh accounts and no wall-of-text embeds.
func (m *Module) OnMessage(e *events.MessageCreate) {
	m.CheckExpirations(m.now())

	msg := e.Message
	if msg.Author.Bot || !m.inGeneral(msg.ChannelID) {
		return
	}
	user := m.bot.Registry.GetByID(msg.Author.ID)
	if user == nil || m.bot.IsProtected(msg.Author.ID) {
		return
	}

	if strings.Contains(msg.Content, "http") && user.Level < 5 {
		if err := m.bot.Client.Rest().DeleteMessage(msg.ChannelID, msg.ID); err != nil {
			slog.Error("Failed to delete link message", slog.String("type", "sys"), slog.Any("error", err))
		}
		m.bot.SendTemporary(msg.ChannelID,
			m.bot.Loc.Getf(i18n.NoLinksHere, "<@"+msg.Author.ID.String()+">", m.bot.Cfg.Guild.MediaChannel),
			8*time.Second)
		return
	}

	if tooLongPaste(msg) {
		if err := m.bot.Client.Rest().DeleteMessage(msg.ChannelID, msg.ID); err != nil {
			slog.Error("Failed to delete long message", slog.String("type", "sys"), slog.Any("error", err))
		}
		m.bot.SendTemporary(msg.ChannelID, m.bot.Loc.Get(i18n.TooLongMessage), 8*time.Second)
	}
}

func (m *Module) inGeneral(channelID snowflake.ID) bool {
	for _, id := range m.bot.Cfg.Guild.GeneralChannels() {
		if id == channelID {
			return true
		}
	}
	return false
}

// tooLongPaste flags messages whose content and first embed both run
// past thirty lines.
func tooLongPaste(msg discord.Message) bool {
	if strings.Count(msg.Content, "\n") < 30 {
		return false
	}
	if len(msg.Embeds) == 0 {
		return false
	}
	desc := msg.Embeds[0].Description
	return len(desc) > 20 && strings.Count(desc, "\n") >= 30
}

// OnMemberBan tracks bans issued outside the bot with the default
// length. A ban the bot already knows about means our own AddBan call
// echoed back.
func (m *Module) OnMemberBan(e *events.GuildBan) {
	m.mu.Lock()
	_, tracked := m.bans[e.User.ID]
	if !tracked {
		m.bans[e.User.ID] = m.now().Add(DefaultBanHours * time.Hour)
		m.saveLocked()
	}
	m.mu.Unlock()

	if tracked {
		return
	}
	m.bot.SendDM(e.User.ID,
		m.bot.Loc.Getf(i18n.BanDM, DefaultBanHours, m.bot.Loc.Get(i18n.BanDefaultWhy)))
}

func (m *Module) OnMemberUnban(e *events.GuildUnban) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, tracked := m.bans[e.User.ID]; tracked {
		delete(m.bans, e.User.ID)
		m.saveLocked()
	}
}

// OnMemberUpdate watches the muted role and timeout changes. Timeouts
// longer than the house limit get shortened.
func (m *Module) OnMemberUpdate(e *events.GuildMemberUpdate) {
	mutedRole := m.bot.Cfg.Guild.MutedRole
	now := m.now()
	name := e.Member.User.Username

	if mutedRole != 0 {
		wasMuted := hasRoleID(e.OldMember.RoleIDs, mutedRole)
		isMuted := hasRoleID(e.Member.RoleIDs, mutedRole)
		switch {
		case isMuted && !wasMuted:
			m.mu.Lock()
			m.mutes[e.Member.User.ID] = now.Add(muteHours * time.Hour)
			m.mu.Unlock()
			m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel,
				m.bot.Loc.Getf(i18n.MemberMuted, name, muteHours))
		case wasMuted && !isMuted:
			m.mu.Lock()
			delete(m.mutes, e.Member.User.ID)
			m.mu.Unlock()
			m.bot.SendTemporary(m.bot.Cfg.Guild.GeneralChannel,
				m.bot.Loc.Getf(i18n.MemberUnmuted, name), 15*time.Second)
		}
	}

	was := e.OldMember.CommunicationDisabledUntil
	cur := e.Member.CommunicationDisabledUntil
	switch {
	case cur != nil && cur.After(now) && (was == nil || !was.After(now)):
		until := *cur
		if limit := now.Add(muteHours * time.Hour); until.After(limit) {
			until = limit
			cdu := json.NewNullable(until)
			if _, err := m.bot.Client.Rest().UpdateMember(m.bot.Cfg.Guild.ID, e.Member.User.ID,
				discord.MemberUpdate{CommunicationDisabledUntil: &cdu}); err != nil {
				slog.Error("Failed to shorten timeout", slog.String("type", "sys"), slog.Any("error", err))
			}
		}
		m.mu.Lock()
		m.timeouts[e.Member.User.ID] = until
		m.mu.Unlock()
		m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel,
			m.bot.Loc.Getf(i18n.MemberTimedOut, name, int(until.Sub(now).Minutes())))
	case was != nil && cur == nil:
		m.mu.Lock()
		_, tracked := m.timeouts[e.Member.User.ID]
		delete(m.timeouts, e.Member.User.ID)
		m.mu.Unlock()
		if tracked {
			m.bot.SendTemporary(m.bot.Cfg.Guild.GeneralChannel,
				m.bot.Loc.Getf(i18n.MemberUntimeout, name), 15*time.Second)
		}
	}
}

// CheckExpirations lifts every ban and mute whose time is up. Calls
// closer together than the sweep interval are ignored.
func (m *Module) CheckExpirations(now time.Time) {
	m.mu.Lock()
	if now.Before(m.lastChecked.Add(checkInterval)) {
		m.mu.Unlock()
		return
	}
	m.lastChecked = now

	var unban, unmute []snowflake.ID
	for id, expiry := range m.bans {
		if now.After(expiry) {
			unban = append(unban, id)
			delete(m.bans, id)
		}
	}
	for id, expiry := range m.mutes {
		if now.After(expiry) {
			unmute = append(unmute, id)
			delete(m.mutes, id)
		}
	}
	for id, expiry := range m.timeouts {
		// Discord lifts these itself, only the tracking entry goes.
		if now.After(expiry) {
			delete(m.timeouts, id)
		}
	}
	if len(unban) > 0 {
		m.saveLocked()
	}
	m.mu.Unlock()

	for _, id := range unban {
		name := id.String()
		if user := m.bot.Registry.GetByID(id); user != nil {
			name = user.Name
		}
		if err := m.bot.Client.Rest().DeleteBan(m.bot.Cfg.Guild.ID, id); err != nil {
			slog.Error("Failed to lift ban",
				slog.String("type", "sys"),
				slog.String("user_id", id.String()),
				slog.Any("error", err))
			continue
		}
		m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel, m.bot.Loc.Getf(i18n.UnbannedMember, name))
	}
	for _, id := range unmute {
		name := id.String()
		if user := m.bot.Registry.GetByID(id); user != nil {
			name = user.Name
		}
		if err := m.bot.Platform().RemoveRole(id, m.bot.Cfg.Guild.MutedRole); err != nil {
			slog.Error("Failed to unmute member",
				slog.String("type", "sys"),
				slog.String("user_id", id.String()),
				slog.Any("error", err))
			continue
		}
		m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel, m.bot.Loc.Getf(i18n.MemberUnmuted, name))
	}
}

func hasRoleID(roles []snowflake.ID, id snowflake.ID) bool {
	for _, r := range roles {
		if r == id {
			return true
		}
	}
	return false
}

func (m *Module) saveLocked() {
	if m.path == "" {
		return
	}
	raw := make(map[string]int64, len(m.bans))
	for id, expiry := range m.bans {
		raw[id.String()] = expiry.Unix()
	}
	if err := botti.SaveJSON(m.path, raw); err != nil {
		slog.Error("Failed to save bans", slog.String("type", "sys"), slog.Any("error", err))
	}
}
