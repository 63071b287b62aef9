// Package blacklist removes messages whose content or attachments have
// been banned by an admin. Admins add entries by reacting to a message
// with the black circle emoji.
package blacklist

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/modules"
)

const triggerEmoji = "⚫"

// A low-level offender is kicked on the first hit and banned when they
// return and repost within this window.
const kickGraceWindow = 10 * time.Minute

// Repeated hits inside this window mean a raid; the bot keeps deleting
// but stops announcing and punishing.
const spamWindow = 15 * time.Second
const spamThreshold = 5

// Offenders at this level or above are trusted enough to only have the
// message removed.
const punishBelowLevel = 5

type Module struct {
	modules.Base
	bot *botti.Bot

	stringsPath string
	listsPath   string
	filesPath   string
	logPath     string
	userlogPath string

	mu       sync.Mutex
	matcher  Matcher
	recent   []time.Time
	kicklist map[snowflake.ID]time.Time

	now func() time.Time
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:         b,
		stringsPath: b.DataPath("blacklist.json"),
		listsPath:   b.DataPath("blacklist_list.json"),
		filesPath:   b.DataPath("blacklist_files.json"),
		logPath:     b.DataPath("blacklist_log.json"),
		userlogPath: b.DataPath("blacklist_userlog.json"),
		kicklist:    make(map[snowflake.ID]time.Time),
		now:         time.Now,
	}
}

func (m *Module) Name() string { return "blacklist" }

func (m *Module) OnReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := botti.LoadJSON(m.stringsPath, &m.matcher.strings); err != nil {
		slog.Error("Failed to load blacklist strings", slog.String("type", "sys"), slog.Any("error", err))
	}
	if err := botti.LoadJSON(m.listsPath, &m.matcher.lists); err != nil {
		slog.Error("Failed to load blacklist lists", slog.String("type", "sys"), slog.Any("error", err))
	}
	if err := botti.LoadJSON(m.filesPath, &m.matcher.files); err != nil {
		slog.Error("Failed to load blacklist files", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func (m *Module) OnMessage(e *events.MessageCreate) {
	m.handle(e.Message)
}

func (m *Module) OnMessageUpdate(e *events.MessageUpdate) {
	m.handle(e.Message)
}

// OnReactionAdd turns a black circle reaction from an admin into new
// blacklist entries and removes the reacted message.
func (m *Module) OnReactionAdd(e *events.MessageReactionAdd) {
	if e.Emoji.ID != nil || e.Emoji.Name == nil || *e.Emoji.Name != triggerEmoji {
		return
	}
	if !m.bot.IsAdmin(e.UserID) {
		return
	}
	msg, err := m.bot.Client.Rest().GetMessage(e.ChannelID, e.MessageID)
	if err != nil {
		slog.Error("Failed to fetch reacted message", slog.String("type", "sys"), slog.Any("error", err))
		return
	}

	added := m.addFromMessage(*msg)

	if err := m.bot.Client.Rest().DeleteMessage(e.ChannelID, e.MessageID); err != nil {
		slog.Error("Failed to delete blacklisted message", slog.String("type", "sys"), slog.Any("error", err))
	}
	m.bot.SendTemporary(e.ChannelID,
		m.bot.Loc.Getf(i18n.Blacklisted, leveling.Mention(msg.Author.ID)), 10*time.Second)

	if len(added) == 0 {
		return
	}
	admin := m.bot.Registry.GetByID(e.UserID)
	adminName := e.UserID.String()
	if admin != nil {
		adminName = admin.Name
	}
	for _, text := range added {
		m.appendLog(m.logPath, m.bot.Loc.Getf(i18n.BlacklistedLog, adminName, text))
	}
}

// addFromMessage records the message's attachments or content in the
// matcher and returns log descriptions of what was new.
func (m *Module) addFromMessage(msg discord.Message) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var added []string
	if len(msg.Attachments) > 0 {
		for _, a := range msg.Attachments {
			f := fileFromAttachment(a)
			if m.matcher.AddFile(f) {
				added = append(added, describeFile(f))
			}
		}
		m.saveFilesLocked()
		return added
	}

	content := msg.Content
	if len(content) <= 3 {
		return nil
	}
	switch {
	case hostedMediaSlug(content) != "":
		slug := hostedMediaSlug(content)
		if m.matcher.AddString(slug) {
			added = append(added, fmt.Sprintf("%s (original: %s)", slug, content))
		}
	case strings.HasPrefix(content, "[") && strings.HasSuffix(content, "]"):
		parts := strings.Split(content[1:len(content)-1], "|")
		m.matcher.AddList(parts)
		added = append(added, strings.ToLower(content))
	default:
		if m.matcher.AddString(content) {
			added = append(added, strings.ToLower(content))
		}
	}
	m.saveStringsLocked()
	return added
}

func (m *Module) handle(msg discord.Message) {
	if msg.Author.Bot {
		return
	}
	m.mu.Lock()
	hit, what := m.matcher.Match(msg.Content, attachmentsOf(msg))
	m.mu.Unlock()
	if !hit {
		return
	}

	if err := m.bot.Client.Rest().DeleteMessage(msg.ChannelID, msg.ID); err != nil {
		slog.Error("Failed to delete blacklisted message", slog.String("type", "sys"), slog.Any("error", err))
	}
	now := m.now()
	if m.beingSpammed(now) {
		return
	}

	m.appendLog(m.userlogPath, m.bot.Loc.Getf(i18n.BlacklistedPost, msg.Author.Username, what))
	m.bot.SendTemporary(msg.ChannelID,
		m.bot.Loc.Getf(i18n.Blacklisted, leveling.Mention(msg.Author.ID)), 8*time.Second)
	m.punish(msg, what, now)
}

func (m *Module) punish(msg discord.Message, what string, now time.Time) {
	user := m.bot.Registry.GetByID(msg.Author.ID)
	if user == nil || !user.IsInGuild || user.Level >= punishBelowLevel {
		return
	}
	guildID := m.bot.Cfg.Guild.ID

	m.mu.Lock()
	kickedAt, kicked := m.kicklist[msg.Author.ID]
	m.mu.Unlock()

	if kicked && now.Sub(kickedAt) < kickGraceWindow {
		m.bot.SendDM(msg.Author.ID, m.bot.Loc.Getf(i18n.BlacklistedBanDM, what))
		if err := m.bot.Client.Rest().AddBan(guildID, msg.Author.ID, 0,
			rest.WithReason(m.bot.Loc.Getf(i18n.BlacklistedBanLog, what))); err != nil {
			slog.Error("Failed to ban repeat offender", slog.String("type", "sys"), slog.Any("error", err))
			return
		}
		m.bot.SendToChannel(msg.ChannelID,
			m.bot.Loc.Getf(i18n.BlacklistedBanAnnce, leveling.Mention(msg.Author.ID)))
		return
	}
	if kicked {
		m.mu.Lock()
		delete(m.kicklist, msg.Author.ID)
		m.mu.Unlock()
	}

	m.bot.SendDM(msg.Author.ID, m.bot.Loc.Getf(i18n.BlacklistedKickDM, what))
	if err := m.bot.Client.Rest().RemoveMember(guildID, msg.Author.ID,
		rest.WithReason(m.bot.Loc.Getf(i18n.BlacklistedKickLog, what))); err != nil {
		slog.Error("Failed to kick offender", slog.String("type", "sys"), slog.Any("error", err))
		return
	}
	m.mu.Lock()
	m.kicklist[msg.Author.ID] = now
	m.mu.Unlock()
}

// beingSpammed records a hit and reports whether the recent window has
// overflowed.
func (m *Module) beingSpammed(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append(m.recent, now)
	kept := m.recent[:0]
	for _, t := range m.recent {
		if t.Add(spamWindow).After(now) || t.Add(spamWindow).Equal(now) {
			kept = append(kept, t)
		}
	}
	m.recent = kept
	return len(m.recent) > spamThreshold
}

func (m *Module) appendLog(path string, line string) {
	if path == "" {
		return
	}
	var lines []string
	if err := botti.LoadJSON(path, &lines); err != nil {
		slog.Error("Failed to load blacklist log", slog.String("type", "sys"), slog.Any("error", err))
	}
	lines = append(lines, line)
	if err := botti.SaveJSON(path, lines); err != nil {
		slog.Error("Failed to save blacklist log", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func (m *Module) saveStringsLocked() {
	if m.stringsPath == "" {
		return
	}
	if err := botti.SaveJSON(m.stringsPath, m.matcher.strings); err != nil {
		slog.Error("Failed to save blacklist strings", slog.String("type", "sys"), slog.Any("error", err))
	}
	if err := botti.SaveJSON(m.listsPath, m.matcher.lists); err != nil {
		slog.Error("Failed to save blacklist lists", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func (m *Module) saveFilesLocked() {
	if m.filesPath == "" {
		return
	}
	if err := botti.SaveJSON(m.filesPath, m.matcher.files); err != nil {
		slog.Error("Failed to save blacklist files", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func describeFile(f File) string {
	return fmt.Sprintf("File: height %d px, width %d px, size %d", f.Height, f.Width, f.Size)
}

func fileFromAttachment(a discord.Attachment) File {
	f := File{Size: a.Size}
	if a.Width != nil {
		f.Width = *a.Width
	}
	if a.Height != nil {
		f.Height = *a.Height
	}
	return f
}

func attachmentsOf(msg discord.Message) []Attachment {
	var out []Attachment
	for _, a := range msg.Attachments {
		f := fileFromAttachment(a)
		out = append(out, Attachment{Width: f.Width, Height: f.Height, Size: f.Size})
	}
	return out
}
