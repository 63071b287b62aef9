// Package userchannels lets members run a text channel of their own:
// one channel per owner under a dedicated category, created on command.
// The owner moderates it with the red circle reaction and the channel
// is swept clean on a schedule sized by the owner's level.
package userchannels

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules"
)

const triggerEmoji = "🔴"

// Bulk deletion refuses messages past this age, those go one by one.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

const (
	ownerPermissions = discord.PermissionViewChannel | discord.PermissionSendMessages |
		discord.PermissionManageMessages | discord.PermissionManageRoles |
		discord.PermissionManageChannels | discord.PermissionManageThreads
	visitorPermissions = discord.PermissionViewChannel | discord.PermissionSendMessages
)

// Channel is one member-owned text channel. The struct doubles as the
// sidecar record.
type Channel struct {
	Owner        snowflake.ID   `json:"owner"`
	AllowedUsers []snowflake.ID `json:"allowed_users"`
	BannedUsers  []snowflake.ID `json:"banned_users"`
	ID           snowflake.ID   `json:"id"`
	PinMessage   snowflake.ID   `json:"pin_message"`
	LastMessage  int64          `json:"last_message_timestamp"`
}

type Module struct {
	modules.Base
	bot  *botti.Bot
	path string

	mu       sync.Mutex
	channels []*Channel
	lastHour time.Time

	now func() time.Time
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:  b,
		path: b.DataPath("user_channels.json"),
		now:  time.Now,
	}
}

func (m *Module) Name() string { return "userchannels" }

func (m *Module) OnReady() {
	m.mu.Lock()
	var raw []*Channel
	if err := botti.LoadJSON(m.path, &raw); err != nil {
		slog.Error("Failed to load user channels", slog.String("type", "sys"), slog.Any("error", err))
	}
	for _, ch := range raw {
		if ch.ID == 0 || ch.Owner == 0 {
			continue
		}
		m.channels = append(m.channels, ch)
	}
	m.saveLocked()
	m.mu.Unlock()

	if m.bot.Cfg.Guild.UserChannelCategory == 0 {
		m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel, m.bot.Loc.Get(i18n.NoUserCategory))
	}
}

func (m *Module) saveLocked() {
	if err := botti.SaveJSON(m.path, m.channels); err != nil {
		slog.Error("Failed to save user channels", slog.String("type", "sys"), slog.Any("error", err))
	}
}

// Has reports whether channelID is one of the member-owned channels.
func (m *Module) Has(channelID snowflake.ID) bool {
	return m.byID(channelID) != nil
}

func (m *Module) byID(channelID snowflake.ID) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.ID == channelID {
			return ch
		}
	}
	return nil
}

func (m *Module) byOwner(userID snowflake.ID) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.Owner == userID {
			return ch
		}
	}
	return nil
}

func (m *Module) remove(channelID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.channels[:0]
	for _, ch := range m.channels {
		if ch.ID != channelID {
			kept = append(kept, ch)
		}
	}
	m.channels = kept
	m.saveLocked()
}

// CreateResult tells the command layer why a create was refused.
type CreateResult int

const (
	CreateOK CreateResult = iota
	CreateNoCategory
	CreateTooLowLevel
	CreatePrevented
	CreateFailed
)

// Create makes the caller's channel, or repairs the permissions of the
// one they already own. The returned id is the channel on success.
func (m *Module) Create(userID snowflake.ID) (CreateResult, snowflake.ID) {
	category := m.bot.Cfg.Guild.UserChannelCategory
	if category == 0 {
		return CreateNoCategory, 0
	}
	user := m.bot.Registry.GetByID(userID)
	if user == nil {
		return CreateFailed, 0
	}
	if user.Level < m.bot.Cfg.Bot.MinChannelLevel {
		return CreateTooLowLevel, 0
	}
	if prevent := m.bot.Cfg.Guild.PreventChannelRole; prevent != 0 && containsID(user.Roles, prevent) {
		return CreatePrevented, 0
	}

	ch := m.byOwner(userID)
	if ch == nil {
		ch = &Channel{Owner: userID}
		m.mu.Lock()
		m.channels = append(m.channels, ch)
		m.mu.Unlock()
	}

	rest := m.bot.Client.Rest()
	if ch.ID == 0 {
		created, err := rest.CreateGuildChannel(m.bot.Cfg.Guild.ID, discord.GuildTextChannelCreate{
			Name:     channelName(user.Name),
			ParentID: category,
			NSFW:     true,
		})
		if err != nil {
			slog.Error("Failed to create user channel",
				slog.String("type", "sys"),
				slog.String("owner_id", userID.String()),
				slog.Any("error", err))
			return CreateFailed, 0
		}
		ch.ID = created.ID()
		ch.LastMessage = m.now().Unix()

		first, err := rest.CreateMessage(ch.ID, discord.NewMessageCreateBuilder().
			SetContent(m.bot.Loc.Getf(i18n.NewChannelIntro, "<@"+userID.String()+">")).Build())
		if err != nil {
			slog.Error("Failed to post channel intro", slog.String("type", "sys"), slog.Any("error", err))
		} else {
			ch.PinMessage = first.ID
			if err = rest.PinMessage(ch.ID, first.ID); err != nil {
				slog.Error("Failed to pin channel intro", slog.String("type", "sys"), slog.Any("error", err))
			}
		}
	}

	ownerAllow := ownerPermissions
	if err := rest.UpdatePermissionOverwrite(ch.ID, userID,
		discord.MemberPermissionOverwriteUpdate{Allow: &ownerAllow}); err != nil {
		slog.Error("Failed to set owner permissions", slog.String("type", "sys"), slog.Any("error", err))
	}
	if viewRole := m.bot.Cfg.Guild.ChannelViewRole; viewRole != 0 {
		visitorAllow := visitorPermissions
		if err := rest.UpdatePermissionOverwrite(ch.ID, viewRole,
			discord.RolePermissionOverwriteUpdate{Allow: &visitorAllow}); err != nil {
			slog.Error("Failed to set visitor permissions", slog.String("type", "sys"), slog.Any("error", err))
		}
	}

	m.mu.Lock()
	m.saveLocked()
	m.mu.Unlock()
	return CreateOK, ch.ID
}

// UnbanResult tells the command layer why an unban was refused.
type UnbanResult int

const (
	UnbanOK UnbanResult = iota
	UnbanNoChannel
)

// Unban restores the target's access to the caller's channel.
func (m *Module) Unban(ownerID, targetID snowflake.ID) UnbanResult {
	ch := m.byOwner(ownerID)
	if ch == nil || ch.ID == 0 {
		return UnbanNoChannel
	}

	m.mu.Lock()
	kept := ch.BannedUsers[:0]
	for _, id := range ch.BannedUsers {
		if id != targetID {
			kept = append(kept, id)
		}
	}
	ch.BannedUsers = kept
	m.saveLocked()
	m.mu.Unlock()

	allow := visitorPermissions
	if err := m.bot.Client.Rest().UpdatePermissionOverwrite(ch.ID, targetID,
		discord.MemberPermissionOverwriteUpdate{Allow: &allow}); err != nil {
		slog.Error("Failed to lift channel ban", slog.String("type", "sys"), slog.Any("error", err))
	}
	return UnbanOK
}

// OnReactionAdd bans the message author from the channel when the
// channel owner reacts with the red circle. The owner, admins and the
// already banned are left alone.
func (m *Module) OnReactionAdd(e *events.MessageReactionAdd) {
	if e.Emoji.ID != nil || e.Emoji.Name == nil || *e.Emoji.Name != triggerEmoji {
		return
	}
	ch := m.byID(e.ChannelID)
	if ch == nil || e.UserID != ch.Owner {
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
	m.banFromChannel(ch, msg.Author.ID, msg.Author.Username)
}

func (m *Module) banFromChannel(ch *Channel, targetID snowflake.ID, name string) {
	if targetID == ch.Owner || m.bot.IsAdmin(targetID) {
		return
	}

	m.mu.Lock()
	if containsID(ch.BannedUsers, targetID) {
		m.mu.Unlock()
		return
	}
	ch.BannedUsers = append(ch.BannedUsers, targetID)
	m.saveLocked()
	m.mu.Unlock()

	deny := visitorPermissions
	if err := m.bot.Client.Rest().UpdatePermissionOverwrite(ch.ID, targetID,
		discord.MemberPermissionOverwriteUpdate{Deny: &deny}); err != nil {
		slog.Error("Failed to set channel ban", slog.String("type", "sys"), slog.Any("error", err))
	}
	m.bot.SendToChannel(ch.ID, m.bot.Loc.Getf(i18n.ChannelBanned, name))
}

// OnMessage stamps the channel's activity and runs the hourly sweep.
func (m *Module) OnMessage(e *events.MessageCreate) {
	if ch := m.byID(e.ChannelID); ch != nil {
		m.mu.Lock()
		ch.LastMessage = e.Message.CreatedAt.Unix()
		m.mu.Unlock()
	}
	if m.sweepDue(m.now()) {
		go m.Sweep()
	}
}

func (m *Module) sweepDue(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hour := now.Truncate(time.Hour)
	if !hour.After(m.lastHour) {
		return false
	}
	m.lastHour = hour
	return true
}

// Sweep deletes channels idle past the configured limit and purges the
// rest down to the owner's level in hours, keeping the pinned intro.
func (m *Module) Sweep() {
	now := m.now()
	idle := time.Duration(m.bot.Cfg.Bot.ChannelIdleHours) * time.Hour

	m.mu.Lock()
	snapshot := make([]*Channel, len(m.channels))
	copy(snapshot, m.channels)
	m.mu.Unlock()

	for _, ch := range snapshot {
		if ch.ID == 0 {
			continue
		}
		if now.Sub(time.Unix(ch.LastMessage, 0)) >= idle {
			if err := m.bot.Client.Rest().DeleteChannel(ch.ID); err != nil {
				slog.Error("Failed to delete idle channel",
					slog.String("type", "sys"),
					slog.String("channel_id", ch.ID.String()),
					slog.Any("error", err))
				continue
			}
			m.remove(ch.ID)
			continue
		}
		if err := m.purgeChannel(ch, now.Add(-m.retention(ch))); err != nil {
			slog.Error("Failed to purge user channel",
				slog.String("type", "sys"),
				slog.String("channel_id", ch.ID.String()),
				slog.Any("error", err))
		}
	}
}

// retention is the owner's level in hours, one hour at the least.
func (m *Module) retention(ch *Channel) time.Duration {
	hours := 1
	if owner := m.bot.Registry.GetByID(ch.Owner); owner != nil && owner.Level > 1 {
		hours = owner.Level
	}
	return time.Duration(hours) * time.Hour
}

func (m *Module) purgeChannel(ch *Channel, cutoff time.Time) error {
	rest := m.bot.Client.Rest()
	var bulk []snowflake.ID
	var single []snowflake.ID

	before := snowflake.ID(0)
	for {
		page, err := rest.GetMessages(ch.ID, 0, before, 0, 100)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, msg := range page {
			if msg.ID == ch.PinMessage || !msg.CreatedAt.Before(cutoff) {
				continue
			}
			if m.now().Sub(msg.CreatedAt) < bulkDeleteMaxAge {
				bulk = append(bulk, msg.ID)
			} else {
				single = append(single, msg.ID)
			}
		}
		// pages come newest first
		before = page[len(page)-1].ID
	}

	for len(bulk) > 0 {
		chunk := bulk
		if len(chunk) > 100 {
			chunk = chunk[:100]
		}
		bulk = bulk[len(chunk):]
		if len(chunk) == 1 {
			single = append(single, chunk[0])
			continue
		}
		if err := rest.BulkDeleteMessages(ch.ID, chunk); err != nil {
			return err
		}
	}
	for _, id := range single {
		if err := rest.DeleteMessage(ch.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// OnMemberJoin reapplies channel bans, which leaving the guild wipes.
func (m *Module) OnMemberJoin(e *events.GuildMemberJoin) {
	userID := e.Member.User.ID
	m.mu.Lock()
	var banned []snowflake.ID
	for _, ch := range m.channels {
		if ch.ID != 0 && containsID(ch.BannedUsers, userID) {
			banned = append(banned, ch.ID)
		}
	}
	m.mu.Unlock()

	deny := visitorPermissions
	for _, channelID := range banned {
		if err := m.bot.Client.Rest().UpdatePermissionOverwrite(channelID, userID,
			discord.MemberPermissionOverwriteUpdate{Deny: &deny}); err != nil {
			slog.Error("Failed to restore channel ban", slog.String("type", "sys"), slog.Any("error", err))
		}
	}
}

// OnMemberUpdate deletes the member's channel when they gain the role
// that blocks channel ownership, and says so in general chat.
func (m *Module) OnMemberUpdate(e *events.GuildMemberUpdate) {
	prevent := m.bot.Cfg.Guild.PreventChannelRole
	if prevent == 0 {
		return
	}
	if !containsID(e.Member.RoleIDs, prevent) || containsID(e.OldMember.RoleIDs, prevent) {
		return
	}
	ch := m.byOwner(e.Member.User.ID)
	if ch == nil || ch.ID == 0 {
		return
	}
	m.remove(ch.ID)
	if err := m.bot.Client.Rest().DeleteChannel(ch.ID); err != nil {
		slog.Error("Failed to delete blocked channel", slog.String("type", "sys"), slog.Any("error", err))
	}
	m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel,
		m.bot.Loc.Getf(i18n.ChannelRemoved, e.Member.User.Username))
}

// channelName folds an owner name into a channel slug.
func channelName(name string) string {
	return strings.NewReplacer(".", "", " ", "", "#", "", ",", "").Replace(strings.ToLower(name))
}

func containsID(ids []snowflake.ID, id snowflake.ID) bool {
	for _, r := range ids {
		if r == id {
			return true
		}
	}
	return false
}
