// Package actives maintains the two activity honor roles: the active
// role for the top scorers of the last two weeks and the active squad
// role for squad members who keep posting.
package actives

import (
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti"
	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/modules"
)

// Squad members who go quiet for this long lose the active squad role.
const squadIdleLimit = 3 * 24 * time.Hour

type Module struct {
	modules.Base
	bot      *botti.Bot
	platform leveling.Platform

	now func() time.Time
}

func New(b *botti.Bot) *Module {
	return &Module{bot: b, platform: b.Platform(), now: time.Now}
}

func (m *Module) Name() string { return "actives" }

func (m *Module) OnReady() {
	m.SyncRoles()
}

func (m *Module) OnNewDay(clock.Day) {
	m.SyncRoles()
}

// OnMessage promotes a posting squad member into the active squad.
func (m *Module) OnMessage(e *events.MessageCreate) {
	squadRole := m.bot.Cfg.Guild.ActiveSquadRole
	if squadRole == 0 || e.Message.Author.Bot {
		return
	}
	user := m.bot.Registry.GetByID(e.Message.Author.ID)
	if user == nil || !user.IsInGuild {
		return
	}
	if !user.HasAnyRole(m.bot.Cfg.Guild.SquadRoles) || user.HasRole(squadRole) {
		return
	}
	if err := m.platform.AddRole(user.ID, squadRole); err != nil {
		slog.Error("Failed to grant active squad role",
			slog.String("type", "sys"),
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
		return
	}
	user.Roles = append(user.Roles, squadRole)
}

// OnMemberJoin restores the active role for a returning top scorer.
func (m *Module) OnMemberJoin(e *events.GuildMemberJoin) {
	activeRole := m.bot.Cfg.Guild.ActiveRole
	if activeRole == 0 || e.Member.User.Bot {
		return
	}
	user := m.bot.Registry.GetByID(e.Member.User.ID)
	if user == nil {
		return
	}
	if m.isActive(user.ID) && !user.HasRole(activeRole) {
		if err := m.platform.AddRole(user.ID, activeRole); err != nil {
			slog.Error("Failed to grant active role",
				slog.String("type", "sys"),
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err))
			return
		}
		user.Roles = append(user.Roles, activeRole)
	}
}

// SyncRoles reconciles both roles for every member against the ranking
// of the last two weeks.
func (m *Module) SyncRoles() {
	activeRole := m.bot.Cfg.Guild.ActiveRole
	squadActive := m.bot.Cfg.Guild.ActiveSquadRole
	if activeRole == 0 && squadActive == 0 {
		return
	}

	active := m.activeSet()
	now := m.now()

	for _, user := range m.bot.Registry.All() {
		if !user.IsInGuild || user.Bot || m.ignored(user.ID) {
			continue
		}
		if activeRole != 0 {
			switch {
			case active[user.ID] && !user.HasRole(activeRole):
				if err := m.platform.AddRole(user.ID, activeRole); err != nil {
					slog.Error("Failed to grant active role",
						slog.String("type", "sys"),
						slog.String("user_id", user.ID.String()),
						slog.Any("error", err))
				} else {
					user.Roles = append(user.Roles, activeRole)
				}
			case !active[user.ID] && user.HasRole(activeRole):
				if err := m.platform.RemoveRole(user.ID, activeRole); err != nil {
					slog.Error("Failed to revoke active role",
						slog.String("type", "sys"),
						slog.String("user_id", user.ID.String()),
						slog.Any("error", err))
				} else {
					dropRole(user, activeRole)
				}
			}
		}
		if squadActive != 0 && user.HasRole(squadActive) && m.squadExpired(user, now) {
			if err := m.platform.RemoveRole(user.ID, squadActive); err != nil {
				slog.Error("Failed to revoke active squad role",
					slog.String("type", "sys"),
					slog.String("user_id", user.ID.String()),
					slog.Any("error", err))
			} else {
				dropRole(user, squadActive)
			}
		}
	}
}

func (m *Module) squadExpired(user *models.User, now time.Time) bool {
	if !user.HasAnyRole(m.bot.Cfg.Guild.SquadRoles) {
		return true
	}
	return now.Unix()-user.Stats.LastPostTime > int64(squadIdleLimit.Seconds())
}

func (m *Module) activeSet() map[snowflake.ID]bool {
	ranked := leveling.Actives(m.bot.Registry.All(), m.bot.Engine.Daylist(), false)
	set := make(map[snowflake.ID]bool, len(ranked))
	for _, r := range ranked {
		// the ranking pads with zero scorers on small guilds
		if r.Points > 0 {
			set[r.User.ID] = true
		}
	}
	return set
}

func (m *Module) isActive(id snowflake.ID) bool {
	return m.activeSet()[id]
}

func (m *Module) ignored(id snowflake.ID) bool {
	for _, ignored := range m.bot.Cfg.Guild.IgnoreLevelUsers {
		if ignored == id {
			return true
		}
	}
	return false
}

func dropRole(user *models.User, roleID snowflake.ID) {
	for i, r := range user.Roles {
		if r == roleID {
			user.Roles = append(user.Roles[:i], user.Roles[i+1:]...)
			return
		}
	}
}
