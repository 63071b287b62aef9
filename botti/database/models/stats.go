package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/sakkee/eetubotti/botti/clock"
)

// Points is a single day's activity split by source.
type Points struct {
	MessagePoints int
	VoicePoints   int
}

func (p Points) Total() int {
	return p.MessagePoints + p.VoicePoints
}

// Stats is the lifetime counter row of a user, one per user.
type Stats struct {
	bun.BaseModel `bun:"table:user_stats,alias:st"`

	UserID          snowflake.ID `bun:"user_id,pk"`
	TimeInVoice     int          `bun:"time_in_voice,notnull,default:0"`
	Points          int          `bun:"points,notnull,default:0"`
	TotalPostLength int          `bun:"total_post_length,notnull,default:0"`
	MentionedTimes  int          `bun:"mentioned_times,notnull,default:0"`
	FilesSent       int          `bun:"files_sent,notnull,default:0"`
	LongestStreak   int          `bun:"longest_streak,notnull,default:0"`
	FirstPostTime   int64        `bun:"first_post_time,notnull,default:0"`
	LastPostTime    int64        `bun:"last_post_time,notnull,default:0"`
	GifCount        int          `bun:"gif_count,notnull,default:0"`
	EmojiCount      int          `bun:"emoji_count,notnull,default:0"`
	BotCommandCount int          `bun:"bot_command_count,notnull,default:0"`

	// In-memory state, not persisted.
	ActivityPointsToday int                   `bun:"-"`
	IsInDatabase        bool                  `bun:"-"`
	ShouldUpdate        bool                  `bun:"-"`
	ActivityDates       map[clock.Day]*Points `bun:"-"`
}

func NewStats(userID snowflake.ID) *Stats {
	return &Stats{
		UserID:        userID,
		ActivityDates: make(map[clock.Day]*Points),
	}
}

// ActivityByDate returns the activity points recorded for a day. Days
// with no recorded activity yield zero points, not an error.
func (s *Stats) ActivityByDate(day clock.Day) Points {
	if p, ok := s.ActivityDates[day]; ok {
		return *p
	}
	return Points{}
}

// AddActivityDate records a closed day's activity and resets the running
// today counter. An already-recorded day is left untouched.
func (s *Stats) AddActivityDate(ad *ActivityDate) {
	s.ActivityPointsToday = 0
	if s.ActivityDates == nil {
		s.ActivityDates = make(map[clock.Day]*Points)
	}
	day := clock.Day{Year: ad.Year, Month: ad.Month, Day: ad.Day}
	if _, ok := s.ActivityDates[day]; ok {
		return
	}
	s.ActivityDates[day] = &Points{MessagePoints: ad.MessagePoints, VoicePoints: ad.VoicePoints}
}
