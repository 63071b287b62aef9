package commands

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules/moderation"
)

var Ban = discord.SlashCommandCreate{
	Name:        "ban",
	Description: "Bännää käyttäjä määräajaksi",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "käyttäjä",
			Description: "Kuka bännätään",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "syy",
			Description: "Bännin syy",
		},
		discord.ApplicationCommandOptionInt{
			Name:        "tunnit",
			Description: "Bännin kesto tunteina (1-18)",
		},
	},
}

func BanHandler(b *botti.Bot, m *moderation.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "ban", gate.Options{
			PerDay:         10,
			Cooldown:       5 * time.Second,
			RequireBanRole: true,
		})
		if !ok {
			return err
		}
		data := e.SlashCommandInteractionData()
		target := data.User("käyttäjä")
		reason, _ := data.OptString("syy")
		hours, given := data.OptInt("tunnit")
		if !given {
			hours = moderation.DefaultBanHours
		}
		switch m.Ban(user.ID, target.ID, reason, hours, e.ChannelID()) {
		case moderation.BanProtected:
			return replyEphemeral(e, b.Loc.Getf(i18n.BanCantBan, target.Username))
		case moderation.BanSelf:
			return replyEphemeral(e, b.Loc.Get(i18n.BanCantSelf))
		case moderation.BanNotInGuild:
			return replyEphemeral(e, b.Loc.Getf(i18n.BanNotInGuild, target.Username))
		case moderation.BanFailed:
			return replyEphemeral(e, b.Loc.Get(i18n.OnError))
		}
		return replyEphemeral(e, b.Loc.Get(i18n.BanDone))
	}
}
