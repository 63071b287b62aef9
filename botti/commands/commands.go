// Package commands holds every slash command of the bot. Each command
// is declared as a discord.SlashCommandCreate next to its handler
// constructor; main wires the handlers onto the router.
package commands

import (
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
)

// Commands is every slash command the bot syncs to the guild.
var Commands = []discord.ApplicationCommandCreate{
	Rank,
	Streak,
	Top,
	Grind,
	Grinders,
	Kasino,
	Saldo,
	Saldot,
	Maksuhairiot,
	Give,
	Synttarit,
	Synttarisankarit,
	Rakkaus,
	Ban,
	Kanava,
	KanavaUnban,
}

// gatekeep resolves the invoking user and runs the command gate. On
// refusal the interaction is answered (or silently acknowledged) and
// ok is false.
func gatekeep(b *botti.Bot, e *handler.CommandEvent, name string, opts gate.Options) (*models.User, bool, error) {
	user := b.Registry.GetByID(e.User().ID)
	if user == nil {
		return nil, false, replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
	}
	res := b.Gate.Check(user, e.ChannelID(), name, opts)
	if res.Allowed {
		return user, true, nil
	}
	if res.Reply == "" {
		// budget burned twice over: acknowledge without a word
		return nil, false, e.DeferCreateMessage(true)
	}
	return nil, false, replyEphemeral(e, res.Reply)
}

func reply(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().SetContent(content).Build())
}

func replyEphemeral(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().SetContent(content).SetEphemeral(true).Build())
}

// targetOrSelf picks the user option when given, the caller otherwise.
func targetOrSelf(b *botti.Bot, e *handler.CommandEvent, option string) *models.User {
	if target, ok := e.SlashCommandInteractionData().OptUser(option); ok {
		return b.Registry.GetByID(target.ID)
	}
	return b.Registry.GetByID(e.User().ID)
}

// humanCount renders 1234567 as 1,234,567 the way the toplists show
// point sums.
func humanCount(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func userOption(description string) discord.ApplicationCommandOptionUser {
	return discord.ApplicationCommandOptionUser{
		Name:        "käyttäjä",
		Description: description,
	}
}

func mention(id snowflake.ID) string {
	return "<@" + id.String() + ">"
}
