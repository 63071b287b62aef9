package commands

import (
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/gate"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/modules/casino"
)

var Kasino = discord.SlashCommandCreate{
	Name:        "kasino",
	Description: "Pyöräytä Megiskasinoa",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "summa",
			Description: "Panos (oletus max)",
		},
	},
}

func KasinoHandler(b *botti.Bot, c *casino.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "kasino", gate.Options{PerDay: 30, Cooldown: 10 * time.Minute})
		if !ok {
			return err
		}

		bet := casino.MaxBet
		if sum, given := e.SlashCommandInteractionData().OptInt("summa"); given {
			bet = sum
		}
		play := c.ClampBet(user, bet)
		if play < casino.MinBet {
			b.Gate.ResetCooldown(user.ID, "kasino")
			return replyEphemeral(e, b.Loc.Get(i18n.TooLowBalance))
		}

		lockOK, warn := c.AcquireChannel(e.ChannelID())
		if !lockOK {
			b.Gate.ResetCooldown(user.ID, "kasino")
			if warn {
				return replyEphemeral(e, b.Loc.Get(i18n.CasinoOngoing))
			}
			return e.DeferCreateMessage(true)
		}
		defer c.ReleaseChannel(e.ChannelID())

		result := c.Play(user, play)

		var description strings.Builder
		description.WriteString(result.Render())
		description.WriteString("\n\n")
		description.WriteString(b.Loc.Getf(i18n.CasinoResult,
			humanCount(result.Bet), humanCount(result.Balance)))

		if err := e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(discord.NewEmbedBuilder().
				SetTitle(b.Loc.Getf(i18n.CasinoTitle, user.Name)).
				SetDescription(description.String()).
				Build()).
			Build()); err != nil {
			return err
		}

		switch {
		case result.BanWorthy():
			b.SendToChannel(e.ChannelID(), b.Loc.Getf(i18n.CasinoWinBan, mention(user.ID)))
			if b.IsProtected(user.ID) {
				b.SendToChannel(e.ChannelID(), b.Loc.Get(i18n.CasinoProtected))
				return nil
			}
			if err := b.Client.Rest().AddBan(b.Cfg.Guild.ID, user.ID, 0,
				rest.WithReason("Megiskasino")); err != nil {
				slog.Error("Failed to ban jackpot loser",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.Any("error", err))
			}
		case result.Won():
			b.SendToChannel(e.ChannelID(), b.Loc.Getf(i18n.CasinoWin, mention(user.ID), humanCount(result.Amount)))
		default:
			b.SendToChannel(e.ChannelID(), b.Loc.Getf(i18n.CasinoLose, mention(user.ID)))
		}
		return nil
	}
}

var Saldo = discord.SlashCommandCreate{
	Name:        "saldo",
	Description: "Näytä pelisaldo",
	Options: []discord.ApplicationCommandOption{
		userOption("Kenen saldo"),
	},
}

func SaldoHandler(b *botti.Bot, c *casino.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, "saldo", gate.Options{PerDay: 30, Cooldown: 10 * time.Second})
		if !ok {
			return err
		}
		target := targetOrSelf(b, e, "käyttäjä")
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		return reply(e, b.Loc.Getf(i18n.BalanceResponse, target.Name, humanCount(c.Balance(target))))
	}
}

var Saldot = discord.SlashCommandCreate{
	Name:        "saldot",
	Description: "Suurimmat pelisaldot",
}

func SaldotHandler(b *botti.Bot, c *casino.Module) handler.CommandHandler {
	return balanceList(b, c, "saldot", i18n.BalancesTitle, false)
}

var Maksuhairiot = discord.SlashCommandCreate{
	Name:        "maksuhäiriöt",
	Description: "Pahimmat velkaantujat",
}

func MaksuhairiotHandler(b *botti.Bot, c *casino.Module) handler.CommandHandler {
	return balanceList(b, c, "maksuhäiriöt", i18n.LowBalancesTitle, true)
}

func balanceList(b *botti.Bot, c *casino.Module, name string, title i18n.Key, asc bool) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		_, ok, err := gatekeep(b, e, name, gate.Options{PerDay: 5, Cooldown: 30 * time.Second})
		if !ok {
			return err
		}
		var sb strings.Builder
		sb.WriteString(b.Loc.Get(title))
		for i, r := range c.TopBalances(usersPerPage, asc) {
			sb.WriteString(b.Loc.Getf(i18n.BalancesRow, i+1, r.User.Name, humanCount(r.Balance)))
		}
		return reply(e, sb.String())
	}
}

var Give = discord.SlashCommandCreate{
	Name:        "give",
	Description: "Anna pelirahaa toiselle",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "käyttäjä",
			Description: "Kenelle annetaan",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "summa",
			Description: "Paljonko annetaan",
			Required:    true,
		},
	},
}

func GiveHandler(b *botti.Bot, c *casino.Module) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, ok, err := gatekeep(b, e, "give", gate.Options{PerDay: 10, Cooldown: 10 * time.Second})
		if !ok {
			return err
		}
		data := e.SlashCommandInteractionData()
		target := b.Registry.GetByID(data.User("käyttäjä").ID)
		if target == nil {
			return replyEphemeral(e, b.Loc.Get(i18n.UserNotFound))
		}
		if target.ID == user.ID {
			return replyEphemeral(e, b.Loc.Get(i18n.GiveCantSelf))
		}
		amount := data.Int("summa")
		if amount <= 0 {
			return replyEphemeral(e, b.Loc.Get(i18n.GivePositive))
		}
		moved, ok := c.Give(user, target, amount)
		if !ok {
			return replyEphemeral(e, b.Loc.Get(i18n.GiveTooPoor))
		}
		return reply(e, b.Loc.Getf(i18n.GiveSuccess, user.Name, target.Name, humanCount(moved)))
	}
}
