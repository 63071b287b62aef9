package commands

import (
	"sort"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
)

var Rank = discord.SlashCommandCreate{
	Name:        "rank",
	Description: "Näytä taso ja sijoitus",
	Options: []discord.ApplicationCommandOption{
		userOption("Kenen sijoitus"),
	},
}

func RankHandler(b *botti.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "rank", gate.Options{PerDay: 15, Cooldown: 5 * time.Second})
		if !ok {
			return err
		}
		target := targetOrSelf(b, e, "käyttäjä")
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		current, needed := models.XPProgress(target.Stats.Points)
		return reply(e, b.Loc.Getf(i18n.RankResponse,
			target.Name, target.Level, rankPosition(b, target), current, needed))
	}
}

var Streak = discord.SlashCommandCreate{
	Name:        "streak",
	Description: "Näytä aktiivisuusputki",
	Options: []discord.ApplicationCommandOption{
		userOption("Kenen putki"),
	},
}

func StreakHandler(b *botti.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "streak", gate.Options{PerDay: 10, Cooldown: 5 * time.Second})
		if !ok {
			return err
		}
		target := targetOrSelf(b, e, "käyttäjä")
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		streak := leveling.UserStreak(target, b.Engine.Daylist())
		return reply(e, b.Loc.Getf(i18n.StreakScore, target.Name, streak))
	}
}

// rankPosition is the 1-based position of the user in the all-time
// point ranking. Bots do not take up positions.
func rankPosition(b *botti.Bot, target *models.User) int {
	users := rankedByPoints(b)
	for i, u := range users {
		if u.ID == target.ID {
			return i + 1
		}
	}
	return len(users)
}

func rankedByPoints(b *botti.Bot) []*models.User {
	all := b.Registry.All()
	users := make([]*models.User, 0, len(all))
	for _, u := range all {
		if !u.Bot {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Stats.Points > users[j].Stats.Points
	})
	return users
}
