// Package botti holds the bot core: configuration, the Discord client
// and the glue between the gateway, the scoring engine and the feature
// modules.
package botti

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/modules"
	"github.com/sakkee/eetubotti/botti/registry"
	"github.com/sakkee/eetubotti/botti/rollover"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB         *database.DB
	Store      *database.Store
	Registry   *registry.Registry
	Engine     *leveling.Engine
	Rollover   *rollover.Coordinator
	Dispatcher *modules.Dispatcher
	Gate       *gate.Gate
	Loc        *i18n.Catalog
	Location   *time.Location
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildMembers,
			gateway.IntentGuildMessages,
			gateway.IntentGuildMessageReactions,
			gateway.IntentGuildModeration,
			gateway.IntentGuildVoiceStates,
			gateway.IntentMessageContent,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagVoiceStates)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Botti is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("yleistä höpinää"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

// Platform returns the engine's view of Discord, backed by the live
// REST client.
func (b *Bot) Platform() leveling.Platform {
	return &discordPlatform{b: b}
}

type discordPlatform struct {
	b *Bot
}

func (p *discordPlatform) SendMessage(channelID snowflake.ID, content string) error {
	_, err := p.b.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().SetContent(content).Build())
	return err
}

func (p *discordPlatform) AddRole(userID snowflake.ID, roleID snowflake.ID) error {
	return p.b.Client.Rest().AddMemberRole(p.b.Cfg.Guild.ID, userID, roleID)
}

func (p *discordPlatform) RemoveRole(userID snowflake.ID, roleID snowflake.ID) error {
	return p.b.Client.Rest().RemoveMemberRole(p.b.Cfg.Guild.ID, userID, roleID)
}

// SendToChannel posts a plain text message, logging instead of failing.
func (b *Bot) SendToChannel(channelID snowflake.ID, content string) {
	if _, err := b.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().SetContent(content).Build()); err != nil {
		slog.Error("Failed to send message",
			slog.String("type", "sys"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}

// SendTemporary posts a notice and deletes it again after ttl.
func (b *Bot) SendTemporary(channelID snowflake.ID, content string, ttl time.Duration) {
	msg, err := b.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().SetContent(content).Build())
	if err != nil {
		slog.Error("Failed to send message",
			slog.String("type", "sys"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
		return
	}
	time.AfterFunc(ttl, func() {
		if err := b.Client.Rest().DeleteMessage(channelID, msg.ID); err != nil {
			slog.Error("Failed to delete notice", slog.String("type", "sys"), slog.Any("error", err))
		}
	})
}

// IsAdmin reports whether the user carries one of the configured admin
// roles, judged from the registry's role cache.
func (b *Bot) IsAdmin(userID snowflake.ID) bool {
	user := b.Registry.GetByID(userID)
	return user != nil && user.HasAnyRole(b.Cfg.Guild.AdminRoles)
}

// CanBan reports whether the user may issue bans: either a ban role or
// an admin role qualifies.
func (b *Bot) CanBan(userID snowflake.ID) bool {
	user := b.Registry.GetByID(userID)
	if user == nil {
		return false
	}
	return user.HasAnyRole(b.Cfg.Guild.BanRoles) || user.HasAnyRole(b.Cfg.Guild.AdminRoles)
}

// IsProtected reports whether the user can never be banned or kicked by
// the bot.
func (b *Bot) IsProtected(userID snowflake.ID) bool {
	for _, id := range b.Cfg.Guild.ProtectedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// SendDM opens (or reuses) the user's DM channel and posts to it. Users
// with DMs closed are a normal condition, the error is only logged.
func (b *Bot) SendDM(userID snowflake.ID, content string) {
	dmChannel, err := b.Client.Rest().CreateDMChannel(userID)
	if err != nil {
		slog.Error("Failed to open DM channel",
			slog.String("type", "sys"),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
		return
	}
	if _, err = b.Client.Rest().CreateMessage(dmChannel.ID(),
		discord.NewMessageCreateBuilder().SetContent(content).Build()); err != nil {
		slog.Error("Failed to send DM",
			slog.String("type", "sys"),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}

// InboundFromMessage reduces a gateway message to the engine's input.
func InboundFromMessage(msg discord.Message) leveling.InboundMessage {
	in := leveling.InboundMessage{
		ID:               msg.ID,
		AuthorID:         msg.Author.ID,
		AuthorName:       msg.Author.Username,
		AuthorIdentifier: msg.Author.Discriminator,
		AuthorBot:        msg.Author.Bot,
		ChannelID:        msg.ChannelID,
		Content:          msg.Content,
		Attachments:      len(msg.Attachments),
		MentionsEveryone: msg.MentionEveryone,
		CreatedAt:        msg.CreatedAt,
	}
	if msg.GuildID != nil {
		in.JumpURL = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", *msg.GuildID, msg.ChannelID, msg.ID)
	}
	if msg.MessageReference != nil && msg.MessageReference.MessageID != nil {
		in.ReferenceID = *msg.MessageReference.MessageID
	}
	if len(msg.Mentions) > 0 {
		in.MentionedUserID = msg.Mentions[0].ID
	}
	for _, r := range msg.Reactions {
		// unicode emoji carry no ID; only guild emoji are tracked
		if r.Emoji.ID != 0 {
			in.Reactions = append(in.Reactions, leveling.InboundReaction{EmojiID: r.Emoji.ID, Count: r.Count})
		}
	}
	return in
}

// SyncMessages backfills messages posted while the bot was offline,
// paging each level channel forward from the newest stored message.
func (b *Bot) SyncMessages(ctx context.Context) error {
	lastID, err := b.Store.LastMessageID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve newest stored message: %w", err)
	}
	if lastID == 0 {
		slog.Info("Empty message table, skipping history sync", slog.String("type", "sys"))
		return nil
	}

	total := 0
	for _, channelID := range b.Cfg.Guild.LevelChannels {
		after := lastID
		for {
			page, err := b.Client.Rest().GetMessages(channelID, 0, 0, after, 100)
			if err != nil {
				slog.Error("Failed to fetch message history",
					slog.String("type", "sys"),
					slog.String("channel_id", channelID.String()),
					slog.Any("error", err))
				break
			}
			if len(page) == 0 {
				break
			}
			// the endpoint returns newest first
			for i := len(page) - 1; i >= 0; i-- {
				b.Engine.HandleMessage(InboundFromMessage(page[i]), true)
				if page[i].ID > after {
					after = page[i].ID
				}
			}
			total += len(page)
		}
	}

	slog.Info("Message history synced",
		slog.String("type", "sys"),
		slog.Int("messages", total))
	return b.Engine.FlushNow(ctx)
}

// DownloadAvatar fetches and stores a user's avatar under the data
// directory, recording the filename in the registry. Returns the local
// path.
func (b *Bot) DownloadAvatar(user discord.User) (string, error) {
	url := user.EffectiveAvatarURL()
	dir := filepath.Join(b.Cfg.Bot.DataDir, "profile_images", user.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar directory: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar fetch returned status %d", resp.StatusCode)
	}

	filename := filepath.Base(url)
	if q := strings.IndexByte(filename, '?'); q >= 0 {
		filename = filename[:q]
	}
	path := filepath.Join(dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer out.Close()
	if _, err = io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}

	b.Registry.SetProfile(user.ID, filename)
	return path, nil
}
