package commands

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules/love"
)

var Rakkaus = discord.SlashCommandCreate{
	Name:        "rakkaus",
	Description: "Kuka rakastaa sinua tänään?",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "käyttäjä",
			Description: "Kenelle rakkautta arvotaan",
			Required:    true,
		},
	},
}

func RakkausHandler(b *botti.Bot, m *love.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "rakkaus", gate.Options{PerDay: 6})
		if !ok {
			return err
		}
		// The target option steers nothing, the draw is daily and
		// random, but a made-up mention would read wrong.
		target := e.SlashCommandInteractionData().User("käyttäjä")
		if b.Registry.GetByID(target.ID) == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		loveID := m.Match(user.ID, time.Now().In(b.Location))
		if loveID == user.ID {
			return reply(e, b.Loc.Getf(i18n.SelfLove, mention(user.ID)))
		}
		partner := b.Registry.GetByID(loveID)
		if partner == nil {
			return reply(e, b.Loc.Getf(i18n.SelfLove, mention(user.ID)))
		}
		return reply(e, b.Loc.Getf(i18n.Loving,
			mention(user.ID), user.Name, mention(partner.ID), partner.Name))
	}
}
