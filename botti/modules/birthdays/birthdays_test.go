package birthdays

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func newTestModule() *Module {
	return &Module{birthdays: make(map[snowflake.ID]*Birthday)}
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestSetAndGet(t *testing.T) {
	m := newTestModule()

	res, _ := m.Set(1, time.Date(1995, 6, 24, 0, 0, 0, 0, time.UTC), now)
	assert.Equal(t, SetOK, res)

	b := m.Get(1)
	assert.Equal(t, 1995, b.Year)
	assert.Equal(t, 6, b.Month)
	assert.Equal(t, 24, b.Day)
	assert.Nil(t, m.Get(2))
}

func TestSetLockedForSixMonths(t *testing.T) {
	m := newTestModule()
	m.Set(1, time.Date(1995, 6, 24, 0, 0, 0, 0, time.UTC), now)

	res, daysLeft := m.Set(1, time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), now.Add(24*time.Hour))
	assert.Equal(t, SetLocked, res)
	assert.Equal(t, 179, daysLeft)

	// after the lock expires the birthday can be corrected
	res, _ = m.Set(1, time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), now.Add(updateInterval+time.Hour))
	assert.Equal(t, SetOK, res)
	assert.Equal(t, 1996, m.Get(1).Year)
}

func TestSetAgeBounds(t *testing.T) {
	m := newTestModule()

	res, _ := m.Set(1, now.AddDate(-12, 0, 0), now)
	assert.Equal(t, SetUnderage, res)

	res, _ = m.Set(1, now.AddDate(-95, 0, 0), now)
	assert.Equal(t, SetTooOld, res)

	res, _ = m.Set(1, now.AddDate(-30, 0, 0), now)
	assert.Equal(t, SetOK, res)
}

func TestNextOccurrence(t *testing.T) {
	b := &Birthday{Year: 1995, Month: 3, Day: 10}
	next, days := b.NextOccurrence(now)
	assert.Equal(t, 0, days)
	assert.True(t, b.IsToday(now))
	assert.Equal(t, 2024, next.Year())

	b = &Birthday{Year: 1995, Month: 3, Day: 12}
	_, days = b.NextOccurrence(now)
	assert.Equal(t, 2, days)

	// already passed this year, wraps to the next
	b = &Birthday{Year: 1995, Month: 1, Day: 5}
	next, days = b.NextOccurrence(now)
	assert.Equal(t, 2025, next.Year())
	assert.Equal(t, 301, days)
}

func TestUpcomingWrapsCalendar(t *testing.T) {
	m := newTestModule()
	m.birthdays[1] = &Birthday{Year: 1990, Month: 3, Day: 15}
	m.birthdays[2] = &Birthday{Year: 1990, Month: 1, Day: 2}
	m.birthdays[3] = &Birthday{Year: 1990, Month: 12, Day: 24}
	m.birthdays[4] = &Birthday{Year: 1990, Month: 3, Day: 10}
	// unset year entries are skipped
	m.birthdays[5] = &Birthday{}

	got := m.Upcoming(now)
	assert.Equal(t, []snowflake.ID{4, 1, 3, 2}, got)
}
