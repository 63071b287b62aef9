// Package birthdays tracks member birthdays: a personal birthday
// register in a JSON sidecar, a birthday role granted for the day and a
// congratulation in general chat.
package birthdays

import (
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/modules"
)

// A set birthday can be changed again after six months, so typos get
// fixed but the role can't be farmed.
const updateInterval = 6 * 30 * 24 * time.Hour

const (
	minAgeYears = 13
	maxAgeYears = 90
)

type Birthday struct {
	Year      int   `json:"year"`
	Month     int   `json:"month"`
	Day       int   `json:"day"`
	Timestamp int64 `json:"timestamp"`
}

type Module struct {
	modules.Base
	bot  *botti.Bot
	path string

	mu        sync.Mutex
	birthdays map[snowflake.ID]*Birthday
}

func New(b *botti.Bot) *Module {
	return &Module{
		bot:       b,
		path:      b.DataPath("birthdays.json"),
		birthdays: make(map[snowflake.ID]*Birthday),
	}
}

func (m *Module) Name() string { return "birthdays" }

func (m *Module) OnReady() {
	m.mu.Lock()
	raw := map[string]*Birthday{}
	if err := botti.LoadJSON(m.path, &raw); err != nil {
		slog.Error("Failed to load birthdays", slog.String("type", "sys"), slog.Any("error", err))
	}
	for id, b := range raw {
		userID, err := snowflake.Parse(id)
		if err != nil {
			continue
		}
		m.birthdays[userID] = b
	}
	m.mu.Unlock()

	m.Sync(time.Now().In(m.bot.Location))
}

func (m *Module) OnNewDay(clock.Day) {
	m.Sync(time.Now().In(m.bot.Location))
}

// SetResult tells the command layer why a set was refused.
type SetResult int

const (
	SetOK SetResult = iota
	SetLocked
	SetUnderage
	SetTooOld
)

// Set records the caller's own birthday. now decides both the re-set
// lock and the age bounds.
func (m *Module) Set(userID snowflake.ID, birthday time.Time, now time.Time) (SetResult, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.birthdays[userID]; ok && existing.Timestamp > 0 {
		elapsed := now.Sub(time.Unix(existing.Timestamp, 0))
		if elapsed < updateInterval {
			daysLeft := int((updateInterval - elapsed).Hours() / 24)
			return SetLocked, daysLeft
		}
	}

	age := now.Sub(birthday)
	if age < minAgeYears*365*24*time.Hour {
		return SetUnderage, 0
	}
	if age > maxAgeYears*365*24*time.Hour {
		return SetTooOld, 0
	}

	m.birthdays[userID] = &Birthday{
		Year:      birthday.Year(),
		Month:     int(birthday.Month()),
		Day:       birthday.Day(),
		Timestamp: now.Unix(),
	}
	m.saveLocked()
	return SetOK, 0
}

// Get returns the stored birthday, nil if unset.
func (m *Module) Get(userID snowflake.ID) *Birthday {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.birthdays[userID]
	if !ok || b.Year == 0 {
		return nil
	}
	return b
}

// NextOccurrence resolves the birthday's next calendar occurrence and
// how many days away it is, zero meaning today.
func (b *Birthday) NextOccurrence(now time.Time) (time.Time, int) {
	next := time.Date(now.Year(), time.Month(b.Month), b.Day, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if next.Before(today) {
		next = time.Date(now.Year()+1, time.Month(b.Month), b.Day, 0, 0, 0, 0, now.Location())
	}
	return next, int(next.Sub(today).Hours() / 24)
}

// IsToday reports whether the birthday falls on now's calendar day.
func (b *Birthday) IsToday(now time.Time) bool {
	return int(now.Month()) == b.Month && now.Day() == b.Day
}

// Upcoming lists user ids with set birthdays in calendar order starting
// from today, wrapping past new year.
func (m *Module) Upcoming(now time.Time) []snowflake.ID {
	type entry struct {
		id    snowflake.ID
		month int
		day   int
	}
	m.mu.Lock()
	var all []entry
	for id, b := range m.birthdays {
		if b.Year == 0 {
			continue
		}
		all = append(all, entry{id: id, month: b.Month, day: b.Day})
	}
	m.mu.Unlock()

	for i := 1; i < len(all); i++ {
		for j := i; j > 0; j-- {
			a, b := all[j], all[j-1]
			if a.month > b.month || (a.month == b.month && a.day >= b.day) {
				break
			}
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	month, day := int(now.Month()), now.Day()
	var upcoming []snowflake.ID
	for _, e := range all {
		if e.month < month || (e.month == month && e.day < day) {
			continue
		}
		upcoming = append(upcoming, e.id)
	}
	for _, e := range all {
		if e.month > month || (e.month == month && e.day >= day) {
			break
		}
		upcoming = append(upcoming, e.id)
	}
	return upcoming
}

// Sync reconciles the birthday role against the calendar and announces
// fresh birthdays in general chat.
func (m *Module) Sync(now time.Time) {
	roleID := m.bot.Cfg.Guild.BirthdayRole
	if roleID == 0 {
		return
	}
	for _, user := range m.bot.Registry.All() {
		if !user.IsInGuild {
			continue
		}
		celebrates := m.celebratesToday(user, now)
		switch {
		case user.HasRole(roleID) && !celebrates:
			if err := m.bot.Platform().RemoveRole(user.ID, roleID); err != nil {
				slog.Error("Failed to remove birthday role",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.Any("error", err))
				continue
			}
			removeRole(user, roleID)
		case !user.HasRole(roleID) && celebrates:
			if err := m.bot.Platform().AddRole(user.ID, roleID); err != nil {
				slog.Error("Failed to add birthday role",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.Any("error", err))
				continue
			}
			user.Roles = append(user.Roles, roleID)
			m.bot.SendToChannel(m.bot.Cfg.Guild.GeneralChannel,
				m.bot.Loc.Getf(i18n.BirthdayAnnounce, leveling.Mention(user.ID)))
		}
	}
}

func (m *Module) celebratesToday(user *models.User, now time.Time) bool {
	b := m.Get(user.ID)
	return b != nil && b.IsToday(now)
}

func (m *Module) saveLocked() {
	if m.path == "" {
		return
	}
	raw := make(map[string]*Birthday, len(m.birthdays))
	for id, b := range m.birthdays {
		raw[id.String()] = b
	}
	if err := botti.SaveJSON(m.path, raw); err != nil {
		slog.Error("Failed to save birthdays", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func removeRole(user *models.User, roleID snowflake.ID) {
	for i, r := range user.Roles {
		if r == roleID {
			user.Roles = append(user.Roles[:i], user.Roles[i+1:]...)
			return
		}
	}
}
