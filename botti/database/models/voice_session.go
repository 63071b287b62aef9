package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// ActiveSpan is a sub-interval of a voice session during which the
// session counted as active (at least two non-AFK users connected).
type ActiveSpan struct {
	Start int64
	End   int64
}

func (a ActiveSpan) Seconds() int {
	return int(a.End - a.Start)
}

// VoiceSession is one continuous stay in non-AFK voice. Only the active
// spans earn points; a user idling alone accrues nothing.
type VoiceSession struct {
	bun.BaseModel `bun:"table:voice_sessions,alias:vs"`

	ID             int64        `bun:"id,pk,autoincrement"`
	UserID         snowflake.ID `bun:"user_id,notnull"`
	StartTime      int64        `bun:"start_time,notnull"`
	EndTime        int64        `bun:"end_time,nullzero"`
	ActivityPoints int          `bun:"activity_points,notnull,default:0"`

	ActiveSpans []ActiveSpan `bun:"-"`
}

func NewVoiceSession(userID snowflake.ID, start int64) *VoiceSession {
	return &VoiceSession{UserID: userID, StartTime: start}
}

// MarkActive opens a new active span at ts. A no-op while a span is
// already open.
func (s *VoiceSession) MarkActive(ts int64) {
	if n := len(s.ActiveSpans); n > 0 && s.ActiveSpans[n-1].End == 0 {
		return
	}
	s.ActiveSpans = append(s.ActiveSpans, ActiveSpan{Start: ts})
}

// Pause closes the open active span, if any, without ending the
// session. Used when the room drops to a single occupant.
func (s *VoiceSession) Pause(ts int64) {
	if n := len(s.ActiveSpans); n > 0 && s.ActiveSpans[n-1].End == 0 {
		s.ActiveSpans[n-1].End = ts
	}
}

// MarkInactive closes the session's open active span, if any, and stamps
// the session end time.
func (s *VoiceSession) MarkInactive(ts int64) {
	s.EndTime = ts
	s.Pause(ts)
}

// ActiveSeconds sums the closed active spans.
func (s *VoiceSession) ActiveSeconds() int {
	total := 0
	for _, span := range s.ActiveSpans {
		if span.End != 0 {
			total += span.Seconds()
		}
	}
	return total
}

// TotalSeconds is the whole stay, active or not.
func (s *VoiceSession) TotalSeconds() int {
	return int(s.EndTime - s.StartTime)
}
