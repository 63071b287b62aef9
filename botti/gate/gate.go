// Package gate decides whether a slash command invocation may run:
// per-day budgets, per-user cooldowns and role or level requirements.
package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
)

// Config is the guild wiring of the gate.
type Config struct {
	GeneralChannelIDs []snowflake.ID
	BotChannelID      snowflake.ID
	CommandsPerDay    int
	MinLevel          int
	AdminRoleIDs      []snowflake.ID
	BanRoleIDs        []snowflake.ID
	SquadRoleIDs      []snowflake.ID
}

// Options are the per-command requirements.
type Options struct {
	PerDay         int // overrides the default daily budget when set
	Cooldown       time.Duration
	AllowLowLevels bool // let users below MinLevel run this in a general channel
	DenyLowLevels  bool // block users below MinLevel even in the bot channel
	RequireAdmin   bool
	RequireBanRole bool
	Uncounted      bool // exempt from the daily budget
}

// Result of a gate check. A refusal with an empty Reply is silent: the
// user burned their budget long ago and gets no further feedback.
type Result struct {
	Allowed bool
	Reply   string
}

type useKey struct {
	userID  snowflake.ID
	command string
}

type Gate struct {
	cfg Config
	loc *i18n.Catalog

	mu        sync.Mutex
	uses      map[useKey]int
	cooldowns map[useKey]time.Time
	now       func() time.Time
}

func New(cfg Config, catalog *i18n.Catalog) *Gate {
	return &Gate{
		cfg:       cfg,
		loc:       catalog,
		uses:      make(map[useKey]int),
		cooldowns: make(map[useKey]time.Time),
		now:       time.Now,
	}
}

// Check runs all requirements for one invocation and, when allowed,
// records the use against the daily budget and the cooldown.
func (g *Gate) Check(user *models.User, channelID snowflake.ID, command string, opts Options) Result {
	if opts.RequireAdmin && !user.HasAnyRole(g.cfg.AdminRoleIDs) {
		return Result{Reply: g.loc.Get(i18n.NotOwner)}
	}
	if opts.RequireBanRole && !user.HasAnyRole(g.cfg.BanRoleIDs) && !user.HasAnyRole(g.cfg.AdminRoleIDs) {
		return Result{Reply: g.loc.Get(i18n.BanNoPermission)}
	}

	inGeneral := g.isGeneral(channelID)
	if user.Level < g.cfg.MinLevel && !g.isExempt(user) {
		if inGeneral && !opts.AllowLowLevels {
			return Result{Reply: g.loc.Getf(i18n.TooLowLevel, channelMention(g.cfg.BotChannelID))}
		}
		if !inGeneral && opts.DenyLowLevels {
			return Result{Reply: g.loc.Getf(i18n.TooLowLevel, channelMention(g.cfg.BotChannelID))}
		}
	}

	key := useKey{userID: user.ID, command: command}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	if opts.Cooldown > 0 {
		if until, ok := g.cooldowns[key]; ok && now.Before(until) {
			wait := int(until.Sub(now).Seconds()) + 1
			return Result{Reply: g.loc.Getf(i18n.WaitCooldown, wait)}
		}
	}

	limit := g.cfg.CommandsPerDay
	if opts.PerDay > 0 {
		limit = opts.PerDay
	}
	if !opts.Uncounted && limit > 0 {
		if !inGeneral {
			limit *= 3
		}
		g.uses[key]++
		if g.uses[key] > limit {
			// past double the budget the refusals go quiet too
			if g.uses[key] >= 2*limit {
				return Result{}
			}
			if inGeneral {
				return Result{Reply: g.loc.Getf(i18n.TooManyCommands, command, channelMention(g.cfg.BotChannelID))}
			}
			return Result{Reply: g.loc.Getf(i18n.TooManyCommands2, command)}
		}
	}

	if opts.Cooldown > 0 {
		g.cooldowns[key] = now.Add(opts.Cooldown)
	}
	return Result{Allowed: true}
}

// ResetCooldown refunds a cooldown when the command refused to run
// after passing the gate.
func (g *Gate) ResetCooldown(userID snowflake.ID, command string) {
	g.mu.Lock()
	delete(g.cooldowns, useKey{userID: userID, command: command})
	g.mu.Unlock()
}

// ResetDay clears the daily budgets. Cooldowns are short and keep
// running.
func (g *Gate) ResetDay() {
	g.mu.Lock()
	g.uses = make(map[useKey]int)
	g.mu.Unlock()
}

func (g *Gate) isGeneral(channelID snowflake.ID) bool {
	for _, c := range g.cfg.GeneralChannelIDs {
		if c == channelID {
			return true
		}
	}
	return false
}

func (g *Gate) isExempt(user *models.User) bool {
	return user.HasAnyRole(g.cfg.SquadRoleIDs) || user.HasAnyRole(g.cfg.AdminRoleIDs)
}

func channelMention(id snowflake.ID) string {
	return fmt.Sprintf("<#%s>", id)
}
