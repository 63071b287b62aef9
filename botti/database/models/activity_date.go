package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// ActivityDate is one closed UTC day of one user's activity. The
// (user_id, year, month, day) tuple is unique so a replayed rollover
// cannot double-count a day.
type ActivityDate struct {
	bun.BaseModel `bun:"table:activity_dates,alias:ad"`

	UserID        snowflake.ID `bun:"user_id,notnull"`
	Year          int          `bun:"year,notnull"`
	Month         int          `bun:"month,notnull"`
	Day           int          `bun:"day,notnull"`
	MessagePoints int          `bun:"message_points,notnull,default:0"`
	VoicePoints   int          `bun:"voice_points,notnull,default:0"`
}
