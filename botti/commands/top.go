package commands

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
)

const usersPerPage = 15

var Top = discord.SlashCommandCreate{
	Name:        "top",
	Description: "Aktiivisimmat käyttäjät kautta aikain",
}

func TopHandler(b *botti.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "top", gate.Options{PerDay: 5, Cooldown: 30 * time.Second})
		if !ok {
			return err
		}
		users := rankedByPoints(b)
		totalPages := int(math.Ceil(float64(len(users)) / float64(usersPerPage)))
		if totalPages == 0 {
			totalPages = 1
		}

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * usersPerPage
				end := min(start+usersPerPage, len(users))

				var description strings.Builder
				description.WriteString(b.Loc.Get(i18n.TopTitle))
				for i, u := range users[start:end] {
					description.WriteString(b.Loc.Getf(i18n.TopRow, start+i+1, u.Name, u.Level))
				}
				embed.SetDescription(description.String())
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

var Grind = discord.SlashCommandCreate{
	Name:        "grind",
	Description: "Oletko aktiivi?",
	Options: []discord.ApplicationCommandOption{
		userOption("Kenen aktiivisuus"),
	},
}

func GrindHandler(b *botti.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "grind", gate.Options{PerDay: 10, Cooldown: 5 * time.Second})
		if !ok {
			return err
		}
		target := targetOrSelf(b, e, "käyttäjä")
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		daylist := b.Engine.Daylist()
		points := leveling.Last14DayPoints(target, daylist)
		threshold := leveling.NextActivityThreshold(b.Registry.All(), daylist)

		key := i18n.ActiveNo
		if points >= threshold && points > 0 {
			key = i18n.ActiveYes
		}
		return reply(e, b.Loc.Getf(key, target.Name, points, threshold))
	}
}

var Grinders = discord.SlashCommandCreate{
	Name:        "grindaajat",
	Description: "Viimeisten kahden viikon aktiivisimmat",
}

func GrindersHandler(b *botti.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "grindaajat", gate.Options{PerDay: 5, Cooldown: 5 * time.Second})
		if !ok {
			return err
		}
		daylist := b.Engine.Daylist()
		actives := leveling.Actives(b.Registry.All(), daylist, false)

		from, to := windowRange(daylist)
		var sb strings.Builder
		sb.WriteString(b.Loc.Getf(i18n.ActiveRowTitle, from, to))
		for i, a := range actives {
			sb.WriteString(b.Loc.Getf(i18n.GrindRow, i+1, a.User.Name, humanCount(a.Points)))
		}
		return reply(e, sb.String())
	}
}

// windowRange renders the first and last closed day of the ranking
// window for the list header.
func windowRange(daylist []clock.Day) (string, string) {
	if len(daylist) < 2 {
		return "", ""
	}
	closed := daylist[:len(daylist)-1]
	if len(closed) > leveling.ActiveWindowDays {
		closed = closed[len(closed)-leveling.ActiveWindowDays:]
	}
	return dayLabel(closed[0]), dayLabel(closed[len(closed)-1])
}

func dayLabel(d clock.Day) string {
	return fmt.Sprintf("%d.%d.", d.Day, d.Month)
}
