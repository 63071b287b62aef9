package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// User is a guild member record. Users are never deleted: when a member
// leaves the guild the row stays so their stats survive a rejoin.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              snowflake.ID `bun:"id,pk"`
	Name            string       `bun:"name,notnull"`
	Bot             bool         `bun:"bot,notnull,default:false"`
	ProfileFilename string       `bun:"profile_filename"`
	Identifier      string       `bun:"identifier,notnull,default:'0'"`

	Stats *Stats `bun:"rel:has-one,join:id=user_id"`

	// In-memory state, not persisted.
	Level        int            `bun:"-"`
	Roles        []snowflake.ID `bun:"-"`
	IsInGuild    bool           `bun:"-"`
	IsInDatabase bool           `bun:"-"`
	VoiceSession *VoiceSession  `bun:"-"`
}

// RefreshLevel recomputes the level from total points and returns it.
func (u *User) RefreshLevel() int {
	u.Level = LevelForPoints(u.Stats.Points)
	return u.Level
}

// AddPoints credits activity points and reports whether the user's level
// changed as a result.
func (u *User) AddPoints(points int) bool {
	old := u.Level
	u.Stats.Points += points
	u.Stats.ActivityPointsToday += points
	u.Stats.ShouldUpdate = true
	return u.RefreshLevel() != old
}

// HasRole reports whether the user currently carries the given guild role.
func (u *User) HasRole(id snowflake.ID) bool {
	for _, r := range u.Roles {
		if r == id {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the given roles.
func (u *User) HasAnyRole(ids []snowflake.ID) bool {
	for _, id := range ids {
		if u.HasRole(id) {
			return true
		}
	}
	return false
}

// SetRoles replaces the cached role set.
func (u *User) SetRoles(roles []snowflake.ID) {
	u.Roles = u.Roles[:0]
	u.Roles = append(u.Roles, roles...)
}
