package leveling

import (
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/i18n"
)

// HandleVoiceStateUpdate tracks one user's voice presence. channelID 0
// means disconnected; the AFK channel counts as not being in voice. A
// session earns points only for the seconds during which at least two
// non-AFK users were connected, one point per ten active seconds.
func (e *Engine) HandleVoiceStateUpdate(userID snowflake.ID, channelID snowflake.ID, now time.Time) {
	user := e.registry.GetByID(userID)
	if user == nil || user.Bot {
		return
	}
	inVoice := channelID != 0 && channelID != e.cfg.AFKChannelID

	e.mu.Lock()
	switch {
	case inVoice && user.VoiceSession == nil:
		e.joinVoice(user, now)
		e.mu.Unlock()
	case !inVoice && user.VoiceSession != nil:
		e.leaveVoice(user, now)
	default:
		// a move between non-AFK channels, nothing changes
		e.mu.Unlock()
	}
}

func (e *Engine) joinVoice(user *models.User, now time.Time) {
	ts := now.Unix()
	user.VoiceSession = models.NewVoiceSession(user.ID, ts)
	e.voiceRoom = append(e.voiceRoom, user)
	switch {
	case len(e.voiceRoom) > 2:
		user.VoiceSession.MarkActive(ts)
	case len(e.voiceRoom) == 2:
		// the room just became active for both occupants
		for _, u := range e.voiceRoom {
			u.VoiceSession.MarkActive(ts)
		}
	}
}

// leaveVoice closes the session, credits the points and releases the
// engine lock (announcements happen outside it).
func (e *Engine) leaveVoice(user *models.User, now time.Time) {
	ts := now.Unix()
	session := user.VoiceSession
	user.VoiceSession = nil
	session.MarkInactive(ts)

	for i, u := range e.voiceRoom {
		if u.ID == user.ID {
			e.voiceRoom = append(e.voiceRoom[:i], e.voiceRoom[i+1:]...)
			break
		}
	}
	if len(e.voiceRoom) == 1 && e.voiceRoom[0].VoiceSession != nil {
		e.voiceRoom[0].VoiceSession.Pause(ts)
	}

	activeSeconds := session.ActiveSeconds()
	session.ActivityPoints = activeSeconds / 10
	user.Stats.TimeInVoice += activeSeconds
	user.Stats.ShouldUpdate = true

	firstToday := user.Stats.ActivityPointsToday == 0
	levelChanged := false
	if session.ActivityPoints > 0 {
		levelChanged = user.AddPoints(session.ActivityPoints)
	}

	quiet := e.launching
	streak := 0
	if firstToday && session.ActivityPoints > 0 {
		streak = UserStreak(user, e.daylist)
		if streak > user.Stats.LongestStreak {
			user.Stats.LongestStreak = streak
			user.Stats.ShouldUpdate = true
		}
		if clock.DayOf(now.In(e.cfg.Location)) == e.startDay {
			streak = 0
		}
	}
	e.mu.Unlock()

	e.store.AddVoiceSession(session)

	if quiet {
		return
	}
	if levelChanged && user.Level > 1 {
		e.RefreshLevelRoles(user)
		e.sendf(e.cfg.GeneralChannelID, i18n.NewLevel, Mention(user.ID), user.Level)
	}
	if streak > 1 {
		e.sendf(e.cfg.GeneralChannelID, i18n.NewStreak, Mention(user.ID), streak)
	}
}

// VoiceRoomSize reports how many users are currently tracked in voice.
func (e *Engine) VoiceRoomSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voiceRoom)
}
