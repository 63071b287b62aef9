// Package handlers connects the gateway to the bot: slash command
// logging and the event listeners that feed the rollover coordinator,
// the scoring engine, the registry and the feature modules.
package handlers

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/registry"
)

func memberInfo(m discord.Member) registry.MemberInfo {
	return registry.MemberInfo{
		ID:         m.User.ID,
		Name:       m.User.Username,
		Identifier: m.User.Discriminator,
		Bot:        m.User.Bot,
		Roles:      m.RoleIDs,
		InGuild:    true,
	}
}

// MessageHandler scores and dispatches every guild message. The
// rollover check runs first so a message arriving right after midnight
// lands on a fresh day.
func MessageHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		if e.Message.GuildID == nil {
			return
		}
		b.Rollover.OnMessage(context.Background(), e.Message.CreatedAt)
		b.Engine.HandleMessage(botti.InboundFromMessage(e.Message), false)
		b.Dispatcher.Message(e)
	})
}

func MessageUpdateHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageUpdate) {
		if e.Message.GuildID == nil {
			return
		}
		b.Dispatcher.MessageUpdate(e)
	})
}

func ReactionHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageReactionAdd) {
		b.Dispatcher.ReactionAdd(e)
	})
}

// VoiceHandler feeds voice presence changes to the engine. The AFK
// channel and disconnects both end the scoring session.
func VoiceHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildVoiceStateUpdate) {
		var channelID snowflake.ID
		if e.VoiceState.ChannelID != nil {
			channelID = *e.VoiceState.ChannelID
		}
		b.Engine.HandleVoiceStateUpdate(e.VoiceState.UserID, channelID, time.Now())
		b.Dispatcher.VoiceStateUpdate(e)
	})
}

// MemberJoinHandler registers the member and restores any level role
// they had earned before leaving.
func MemberJoinHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildMemberJoin) {
		user := b.Registry.AddIfNotExists(memberInfo(e.Member))
		b.Engine.RefreshLevelRoles(user)
		b.Dispatcher.MemberJoin(e)
	})
}

func MemberLeaveHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildMemberLeave) {
		b.Registry.OnMemberLeave(e.User.ID)
		b.Dispatcher.MemberLeave(e)
	})
}

// MemberUpdateHandler keeps the registry's role cache in sync so the
// permission checks never need a REST round trip.
func MemberUpdateHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildMemberUpdate) {
		b.Registry.AddIfNotExists(memberInfo(e.Member))
		b.Dispatcher.MemberUpdate(e)
	})
}

func BanHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildBan) {
		b.Registry.OnMemberLeave(e.User.ID)
		b.Dispatcher.MemberBan(e)
	})
}

func UnbanHandler(b *botti.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildUnban) {
		b.Dispatcher.MemberUnban(e)
	})
}
