// Package i18n maps typed message keys to format strings. The bot
// speaks Finnish by default; any key can be overridden from a TOML file
// without recompiling.
package i18n

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Key string

const (
	OnBoot           Key = "ON_BOOT"
	OnError          Key = "ON_ERROR"
	UserNotFound     Key = "USER_NOT_FOUND"
	NewLevel         Key = "NEW_LEVEL"
	NewStreak        Key = "NEW_STREAK"
	StreakScore      Key = "STREAK_SCORE"
	TopTitle         Key = "TOP_TITLE"
	TopRow           Key = "TOP_ROW"
	RankResponse     Key = "RANK_RESPONSE"
	ActiveYes        Key = "ACTIVE_YES"
	ActiveNo         Key = "ACTIVE_NO"
	ActiveRowTitle   Key = "ACTIVE_ROW_TITLE"
	GrindRow         Key = "GRIND_ROW"
	TooManyCommands  Key = "TOO_MANY_COMMANDS"
	TooManyCommands2 Key = "TOO_MANY_COMMANDS_1"
	TooLowLevel      Key = "TOO_LOW_LEVEL"
	NotOwner         Key = "NOT_OWNER"
	WaitCooldown     Key = "WAIT_COOLDOWN"

	CasinoGuide      Key = "CASINO_GUIDE"
	CasinoWrongSum   Key = "CASINO_WRONG_SUM"
	CasinoOngoing    Key = "CASINO_ONGOING"
	CasinoWin        Key = "CASINO_WIN"
	CasinoWinBan     Key = "CASINO_WIN_BAN"
	CasinoLose       Key = "CASINO_LOSE"
	CasinoTitle      Key = "CASINO_TITLE"
	CasinoProtected  Key = "CASINO_PROTECTED"
	CasinoResult     Key = "CASINO_RESULT"
	TooLowBalance    Key = "TOO_LOW_BALANCE"
	BalanceResponse  Key = "BALANCE_RESPONSE"
	BalancesTitle    Key = "BALANCES_TITLE"
	LowBalancesTitle Key = "LOW_BALANCES_TITLE"
	BalancesRow      Key = "BALANCES_ROW"
	GiveTooPoor      Key = "GIVE_TOO_POOR"
	GiveCantSelf     Key = "GIVE_CANT_SELF"
	GivePositive     Key = "GIVE_MUST_BE_POSITIVE"
	GiveSuccess      Key = "GIVE_SUCCESS"

	BirthdayWait      Key = "BIRTHDAY_WAIT"
	BirthdayUnderage  Key = "BIRTHDAY_UNDERAGE"
	BirthdayTooOld    Key = "BIRTHDAY_TOO_OLD"
	BirthdaySet       Key = "BIRTHDAY_SET"
	BirthdayNotSet    Key = "BIRTHDAY_NOT_YET_SET"
	BirthdayToday     Key = "BIRTHDAY_TODAY"
	BirthdayDelta     Key = "BIRTHDAY_DELTA"
	BirthdayError     Key = "BIRTHDAY_ERROR"
	BirthdayAnnounce  Key = "BIRTHDAY_ANNOUNCE"
	NextBirthdaysRows Key = "NEXT_BIRTHDAYS_ROW"
	NextBirthdays     Key = "NEXT_BIRTHDAYS_TITLE"

	SelfLove Key = "SELF_LOVE"
	Loving   Key = "LOVING"

	Blacklisted         Key = "BLACKLISTED"
	BlacklistedPost     Key = "BLACKLISTED_POST"
	BlacklistedLog      Key = "BLACKLISTED_LOG"
	BlacklistedKickDM   Key = "BLACKLISTED_KICK_DM"
	BlacklistedKickLog  Key = "BLACKLISTED_KICK_LOG"
	BlacklistedBanDM    Key = "BLACKLISTED_BAN_DM"
	BlacklistedBanLog   Key = "BLACKLISTED_BAN_LOG"
	BlacklistedBanAnnce Key = "BLACKLISTED_BAN_ANNOUNCE"

	BanNoPermission Key = "BAN_NO_PERMISSION"
	BanCantBan      Key = "BAN_CANT_BAN"
	BanNotInGuild   Key = "BAN_NOT_IN_GUILD"
	BanCantSelf     Key = "BAN_CANT_SELF"
	BanDM           Key = "BAN_DM"
	BanDefaultWhy   Key = "BAN_DEFAULT_REASON"
	BanAnnounce     Key = "BAN_CHANNEL_ANNOUNCE"
	BanDone         Key = "BAN_DONE"
	UnbannedMember  Key = "UNBANNED_MEMBER"
	MemberMuted     Key = "MEMBER_MUTED"
	MemberUnmuted   Key = "MEMBER_UNMUTED"
	MemberTimedOut  Key = "MEMBER_TIMEDOUT"
	MemberUntimeout Key = "MEMBER_UNTIMEOUT"
	NoLinksHere     Key = "NO_LINKS_IN_GENERAL"
	TooLongMessage  Key = "TOO_LONG_MSG"

	NoUserCategory     Key = "NO_USER_CATEGORY_EXISTS"
	YourTextChannel    Key = "YOUR_TEXT_CHANNEL"
	NewChannelIntro    Key = "NEW_CHANNEL_TEMPLATE"
	TooLowLevelChannel Key = "TOO_LOW_LEVEL_CHANNEL_CREATE"
	NotAChannelOwner   Key = "NOT_A_CHANNEL_OWNER"
	ChannelBanned      Key = "BANNED_FROM_CHANNEL"
	ChannelUnbanned    Key = "UNBANNED_FROM_CHANNEL"
	ChannelRemoved     Key = "CHANNEL_REMOVED_PREVENT"
)

var defaults = map[Key]string{
	OnBoot:           "Nyt ollaan hereillä. :-)",
	OnError:          "Nyt meni jotain pieleen.",
	UserNotFound:     "Käyttäjää ei löytynyt.",
	NewLevel:         "%s nousi tasolle **%d**!",
	NewStreak:        "%s jatkaa putkeaan: **%d** päivää putkeen!",
	StreakScore:      "**%s** on ollut aktiivinen **%d** päivää putkeen.",
	TopTitle:         "**Aktiivisimmat käyttäjät:**\n",
	TopRow:           "%d. **%s** — taso %d\n",
	RankResponse:     "**%s** on tasolla **%d** (sija #%d) — %d/%d XP.",
	ActiveYes:        "**%s** on aktiivi! Pisteet: %d (raja %d).",
	ActiveNo:         "**%s** ei ole aktiivi. Pisteet: %d (raja %d).",
	ActiveRowTitle:   "**Grindaajat %s–%s:**\n",
	GrindRow:         "%d. **%s** — %s pistettä\n",
	TooManyCommands:  "Komento %s on käytetty loppuun tältä päivältä. Käytä kanavaa %s.",
	TooManyCommands2: "Komento %s on käytetty loppuun tältä päivältä.",
	TooLowLevel:      "Tasosi ei vielä riitä. Harjoittele kanavalla %s.",
	NotOwner:         "Ei oikeuksia.",
	WaitCooldown:     "Odota vielä %d sekuntia.",

	CasinoGuide:      "Käyttö: /kasino summa",
	CasinoWrongSum:   "Panoksen pitää olla väliltä %d–%d.",
	CasinoOngoing:    "Kasino on jo käynnissä tällä kanavalla, odota vuoroasi.",
	CasinoWin:        "%s voitti **%s**! 🎰",
	CasinoWinBan:     "%s voitti jättipotin... ja sai bännit. 🎰",
	CasinoLose:       "%s hävisi kaiken. 🎰",
	CasinoTitle:      "Megiskasino — %s",
	CasinoProtected:  "no enpä bännää ku äijä on suojeltu",
	CasinoResult:     "Panos: %s — Saldo: %s",
	TooLowBalance:    "Saldosi ei riitä.",
	BalanceResponse:  "**%s** saldo: **%s**",
	BalancesTitle:    "**Suurimmat saldot:**\n",
	LowBalancesTitle: "**Maksuhäiriöt:**\n",
	BalancesRow:      "%d. **%s** — %s\n",
	GiveTooPoor:      "Et voi antaa rahaa, koska saldosi on miinuksella.",
	GiveCantSelf:     "Et voi antaa rahaa itsellesi.",
	GivePositive:     "Summan pitää olla positiivinen.",
	GiveSuccess:      "**%s** antoi käyttäjälle **%s** %s rahaa.",

	BirthdayWait:      "Voit vaihtaa syntymäpäivääsi seuraavan kerran %d päivän päästä.",
	BirthdayUnderage:  "Eiköhän sinä oot liian nuori tänne.",
	BirthdayTooOld:    "Noin vanha ihminen tuskin käyttää Discordia.",
	BirthdaySet:       "Syntymäpäiväksi asetettu %d.%d.",
	BirthdayNotSet:    "**%s** ei ole asettanut syntymäpäiväänsä.",
	BirthdayToday:     "**%s** viettää syntymäpäiväänsä tänään! 🎉",
	BirthdayDelta:     "**%s** juhlii seuraavan kerran %d.%d. (%d päivän päästä).",
	BirthdayError:     "Anna päivämäärä muodossa pp.kk.vvvv.",
	BirthdayAnnounce:  "Hyvää syntymäpäivää %s! 🎂",
	NextBirthdays:     "**Seuraavat synttärisankarit:**\n",
	NextBirthdaysRows: "%d.%d. — **%s**\n",

	SelfLove: "%s rakastaa vain itseään. 💔",
	Loving:   "%s (%s) ❤️ %s (%s)",

	Blacklisted:         "%s, tuo sisältö on mustalla listalla.",
	BlacklistedPost:     "%s yritti postata mustalistattua sisältöä: %s",
	BlacklistedLog:      "%s lisäsi mustalle listalle: %s",
	BlacklistedKickDM:   "Postasit mustalistattua sisältöä (%s), joten lensit pellolle. Voit palata, kun jaksat käyttäytyä.",
	BlacklistedKickLog:  "Mustalistattu sisältö: %s",
	BlacklistedBanDM:    "Jatkoit mustalistatun sisällön postaamista (%s), joten nyt tuli bännit.",
	BlacklistedBanLog:   "Toistuva mustalistattu sisältö: %s",
	BlacklistedBanAnnce: "%s sai bännit mustalistatun sisällön spämmäämisestä.",

	BanNoPermission: "Sinulla ei ole oikeuksia bännätä.",
	BanCantBan:      "Käyttäjää **%s** ei voi bännätä.",
	BanNotInGuild:   "**%s** ei ole palvelimella.",
	BanCantSelf:     "Et voi bännätä itseäsi.",
	BanDM:           "Sait bännit %d tunniksi. Syy: %s",
	BanDefaultWhy:   "ei syytä",
	BanAnnounce:     "**%s** sai bännit %d tunniksi. Syy: %s (bännääjä: %s)",
	BanDone:         "meni bänneille",
	UnbannedMember:  "**%s** pääsi takaisin bänneiltä.",
	MemberMuted:     "**%s** mykistettiin %d tunniksi.",
	MemberUnmuted:   "**%s** ei ole enää mykistetty.",
	MemberTimedOut:  "**%s** sai jäähyn (%d min).",
	MemberUntimeout: "**%s** pääsi jäähyltä.",
	NoLinksHere:     "%s, linkit kuuluvat kanavalle <#%s>.",
	TooLongMessage:  "Liian pitkä viesti, tiivistä vähän.",

	NoUserCategory:     "Omien kanavien kategoriaa ei ole, kanavia ei voi luoda.",
	YourTextChannel:    "Oma kanavasi: %s",
	NewChannelIntro:    "Tervetuloa omalle kanavallesi %s!\n> **/kanava**: luo oma kanava tai korjaa sen oikeudet\n> **🔴**: bännää viestin kirjoittaja tältä kanavalta\n> **/kanava_unban**: päästää bännätyn takaisin",
	TooLowLevelChannel: "Oman kanavan saa vasta tasolla %d.",
	NotAChannelOwner:   "Sinulla ei ole omaa kanavaa.",
	ChannelBanned:      "**%s** sai porttikiellon tälle kanavalle.",
	ChannelUnbanned:    "**%s** pääsee taas kanavalle (**%s** päästi).",
	ChannelRemoved:     "Poistin käyttäjän **%s** oman kanavan, koska hän sai kanavat estävän roolin.",
}

// Catalog resolves message keys to format strings.
type Catalog struct {
	messages map[Key]string
}

// Default returns a catalog with the built-in strings.
func Default() *Catalog {
	m := make(map[Key]string, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	return &Catalog{messages: m}
}

// Load returns the default catalog overlaid with entries from a TOML
// file of key = "string" pairs. A missing file is not an error.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read localization file: %w", err)
	}
	var overrides map[string]string
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse localization file: %w", err)
	}
	for k, v := range overrides {
		key := Key(k)
		if _, known := defaults[key]; !known {
			slog.Warn("Unknown localization key",
				slog.String("type", "sys"),
				slog.String("key", k))
		}
		c.messages[key] = v
	}
	return c, nil
}

// Get returns the raw format string for a key.
func (c *Catalog) Get(key Key) string {
	if msg, ok := c.messages[key]; ok {
		return msg
	}
	return string(key)
}

// Getf formats the message for a key with fmt verbs.
func (c *Catalog) Getf(key Key, args ...any) string {
	return fmt.Sprintf(c.Get(key), args...)
}
