package leveling

import (
	"sort"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
)

// ActiveWindowDays is how many closed days the active ranking looks at.
const ActiveWindowDays = 14

// ActiveCount is how many users count as actives.
const ActiveCount = 15

// UserStreak returns how many days in a row the user has been active,
// counting today as the first day. The walk goes backwards from the day
// before the last daylist entry and stops at the first inactive day.
func UserStreak(user *models.User, daylist []clock.Day) int {
	streak := 1
	for i := len(daylist) - 2; i >= 0; i-- {
		if user.Stats.ActivityByDate(daylist[i]).Total() == 0 {
			break
		}
		streak++
	}
	return streak
}

// RankedUser pairs a user with their activity sum over a window.
type RankedUser struct {
	User   *models.User
	Points int
}

// Actives ranks users by activity over the last ActiveWindowDays closed
// days. The current (still open) day is excluded; includeCurrent adds
// today's running counter on top of the window.
func Actives(users []*models.User, daylist []clock.Day, includeCurrent bool) []RankedUser {
	return rankByWindow(users, closedWindow(daylist, ActiveWindowDays), includeCurrent, ActiveCount)
}

// Last14DayPoints is the activity score the active threshold compares
// against: the last 13 closed days plus today's running counter.
func Last14DayPoints(user *models.User, daylist []clock.Day) int {
	sum := user.Stats.ActivityPointsToday
	for _, day := range closedWindow(daylist, ActiveWindowDays-1) {
		sum += user.Stats.ActivityByDate(day).Total()
	}
	return sum
}

// NextActivityThreshold returns the score a user has to beat to enter
// the actives, using the same 13-days-plus-today window as
// Last14DayPoints.
func NextActivityThreshold(users []*models.User, daylist []clock.Day) int {
	ranked := rankByWindow(users, closedWindow(daylist, ActiveWindowDays-1), true, ActiveCount)
	if len(ranked) < ActiveCount {
		return 0
	}
	return ranked[len(ranked)-1].Points
}

// closedWindow returns the last n daylist entries before the current
// day. The final entry is the open day and never part of the window.
func closedWindow(daylist []clock.Day, n int) []clock.Day {
	if len(daylist) < 2 {
		return nil
	}
	closed := daylist[:len(daylist)-1]
	if len(closed) > n {
		closed = closed[len(closed)-n:]
	}
	return closed
}

func rankByWindow(users []*models.User, window []clock.Day, includeCurrent bool, limit int) []RankedUser {
	ranked := make([]RankedUser, 0, len(users))
	for _, u := range users {
		if u.Bot {
			continue
		}
		sum := 0
		for _, day := range window {
			sum += u.Stats.ActivityByDate(day).Total()
		}
		if includeCurrent {
			sum += u.Stats.ActivityPointsToday
		}
		ranked = append(ranked, RankedUser{User: u, Points: sum})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
