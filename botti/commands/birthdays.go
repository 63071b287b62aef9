package commands

import (
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules/birthdays"
)

var Synttarit = discord.SlashCommandCreate{
	Name:        "synttärit",
	Description: "Aseta tai katso syntymäpäivä",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "päivä",
			Description: "Oma syntymäpäivä muodossa pp.kk.vvvv",
		},
		userOption("Kenen syntymäpäivä"),
	},
}

func SynttaritHandler(b *botti.Bot, m *birthdays.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "synttärit", gate.Options{PerDay: 10, Cooldown: 10 * time.Second})
		if !ok {
			return err
		}
		now := time.Now().In(b.Location)

		if raw, given := e.SlashCommandInteractionData().OptString("päivä"); given {
			date, err := parseBirthday(raw)
			if err != nil {
				return replyEphemeral(e, b.Loc.Get(i18n.BirthdayError))
			}
			res, daysLeft := m.Set(user.ID, date, now)
			switch res {
			case birthdays.SetLocked:
				return replyEphemeral(e, b.Loc.Getf(i18n.BirthdayWait, daysLeft))
			case birthdays.SetUnderage:
				return replyEphemeral(e, b.Loc.Get(i18n.BirthdayUnderage))
			case birthdays.SetTooOld:
				return replyEphemeral(e, b.Loc.Get(i18n.BirthdayTooOld))
			}
			return reply(e, b.Loc.Getf(i18n.BirthdaySet, date.Day(), int(date.Month())))
		}

		target := targetOrSelf(b, e, "käyttäjä")
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		bd := m.Get(target.ID)
		if bd == nil {
			return reply(e, b.Loc.Getf(i18n.BirthdayNotSet, target.Name))
		}
		if bd.IsToday(now) {
			return reply(e, b.Loc.Getf(i18n.BirthdayToday, target.Name))
		}
		_, days := bd.NextOccurrence(now)
		return reply(e, b.Loc.Getf(i18n.BirthdayDelta, target.Name, bd.Day, bd.Month, days))
	}
}

var Synttarisankarit = discord.SlashCommandCreate{
	Name:        "synttärisankarit",
	Description: "Seuraavaksi juhlivat",
}

func SynttarisankaritHandler(b *botti.Bot, m *birthdays.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "synttärisankarit", gate.Options{PerDay: 10, Cooldown: 10 * time.Second})
		if !ok {
			return err
		}
		now := time.Now().In(b.Location)
		upcoming := m.Upcoming(now)
		if len(upcoming) > usersPerPage {
			upcoming = upcoming[:usersPerPage]
		}
		var sb strings.Builder
		sb.WriteString(b.Loc.Get(i18n.NextBirthdays))
		for _, id := range upcoming {
			bd := m.Get(id)
			user := b.Registry.GetByID(id)
			if bd == nil || user == nil {
				continue
			}
			sb.WriteString(b.Loc.Getf(i18n.NextBirthdaysRows, bd.Day, bd.Month, user.Name))
		}
		return reply(e, sb.String())
	}
}

// parseBirthday accepts day.month.year with or without leading zeros.
func parseBirthday(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	date, err := time.Parse("2.1.2006", raw)
	if err != nil {
		date, err = time.Parse("02.01.2006", raw)
	}
	return date, err
}
