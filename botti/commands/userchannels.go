package commands

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules/userchannels"
)

var Kanava = discord.SlashCommandCreate{
	Name:        "kanava",
	Description: "Luo oma tekstikanava tai korjaa sen oikeudet",
}

var KanavaUnban = discord.SlashCommandCreate{
	Name:        "kanava_unban",
	Description: "Päästä bännätty käyttäjä takaisin omalle kanavallesi",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "käyttäjä",
			Description: "Kuka päästetään takaisin",
			Required:    true,
		},
	},
}

func KanavaHandler(b *botti.Bot, m *userchannels.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "kanava", gate.Options{
			PerDay:   10,
			Cooldown: 10 * time.Second,
		})
		if !ok {
			return err
		}
		switch result, channelID := m.Create(user.ID); result {
		case userchannels.CreateNoCategory:
			return replyEphemeral(e, b.Loc.Get(i18n.NoUserCategory))
		case userchannels.CreateTooLowLevel:
			return replyEphemeral(e, b.Loc.Getf(i18n.TooLowLevelChannel, b.Cfg.Bot.MinChannelLevel))
		case userchannels.CreatePrevented:
			// the blocked get no explanation, just a silent ack
			return e.DeferCreateMessage(true)
		case userchannels.CreateFailed:
			return replyEphemeral(e, b.Loc.Get(i18n.OnError))
		default:
			return replyEphemeral(e, b.Loc.Getf(i18n.YourTextChannel, "<#"+channelID.String()+">"))
		}
	}
}

func KanavaUnbanHandler(b *botti.Bot, m *userchannels.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "kanava_unban", gate.Options{
			PerDay:   20,
			Cooldown: 5 * time.Second,
		})
		if !ok {
			return err
		}
		target := e.SlashCommandInteractionData().User("käyttäjä")
		if m.Unban(user.ID, target.ID) == userchannels.UnbanNoChannel {
			return replyEphemeral(e, b.Loc.Get(i18n.NotAChannelOwner))
		}
		return reply(e, b.Loc.Getf(i18n.ChannelUnbanned, target.Username, user.Name))
	}
}
