// Package rollover watches for day changes. A UTC day change closes the
// previous day: its message and voice activity is aggregated into
// per-user activity rows and pushed into the in-memory stats. A local
// day change is broadcast to feature modules (birthday sync, counter
// resets) without touching the aggregates.
package rollover

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/database/models"
	"github.com/sakkee/eetubotti/botti/leveling"
	"github.com/sakkee/eetubotti/botti/registry"
)

type Coordinator struct {
	store    *database.Store
	registry *registry.Registry
	engine   *leveling.Engine
	loc      *time.Location

	mu           sync.Mutex
	currentLocal clock.Day
	lastUTC      clock.Day
	launching    bool
	subscribers  []func(clock.Day)
}

// New builds a coordinator. lastSeen is the timestamp of the newest
// stored message: if the process was down across one or more UTC
// midnights, the gap days get closed on the first tick.
func New(store *database.Store, reg *registry.Registry, engine *leveling.Engine, loc *time.Location, lastSeen time.Time) *Coordinator {
	now := time.Now()
	return &Coordinator{
		store:        store,
		registry:     reg,
		engine:       engine,
		loc:          loc,
		currentLocal: clock.DayOf(now.In(loc)),
		lastUTC:      clock.UTCDayOf(lastSeen),
	}
}

// Subscribe registers a callback for local day changes.
func (c *Coordinator) Subscribe(fn func(clock.Day)) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// SetLaunching toggles boot mode: day changes detected while launching
// still close days but are not broadcast.
func (c *Coordinator) SetLaunching(v bool) {
	c.mu.Lock()
	c.launching = v
	c.mu.Unlock()
}

// OnMessage runs both day checks against a message's creation time.
func (c *Coordinator) OnMessage(ctx context.Context, createdAt time.Time) {
	c.check(ctx, createdAt)
}

// Tick runs both day checks against the wall clock. Scheduled so quiet
// nights still roll over.
func (c *Coordinator) Tick(ctx context.Context) {
	c.check(ctx, time.Now())
}

func (c *Coordinator) check(ctx context.Context, at time.Time) {
	c.mu.Lock()

	utcDay := clock.UTCDayOf(at)
	if utcDay != c.lastUTC {
		from := c.lastUTC
		c.lastUTC = utcDay
		c.mu.Unlock()
		c.closeDays(ctx, from, utcDay)
		c.mu.Lock()
	}

	localDay := clock.DayOf(time.Now().In(c.loc))
	var fire []func(clock.Day)
	if localDay != c.currentLocal {
		c.currentLocal = localDay
		if !c.launching {
			fire = append(fire, c.subscribers...)
		}
		slog.Info("Local day changed",
			slog.String("type", "sys"),
			slog.String("day", localDay.String()))
	}
	c.mu.Unlock()

	for _, fn := range fire {
		fn(localDay)
	}
}

// closeDays aggregates every UTC day in [from, until) and pushes the
// results into the live stats. Each day is handled separately so a
// multi-day outage still yields per-day activity rows.
func (c *Coordinator) closeDays(ctx context.Context, from, until clock.Day) {
	if err := c.engine.FlushNow(ctx); err != nil {
		slog.Error("Failed to flush before day close",
			slog.String("type", "db"),
			slog.Any("error", err))
	}

	for day := from; day != until; day = nextDay(day) {
		if err := c.closeDay(ctx, day); err != nil {
			slog.Error("Failed to close day",
				slog.String("type", "db"),
				slog.String("day", day.String()),
				slog.Any("error", err))
		}
	}
	c.engine.EnsureDay(until)
}

func (c *Coordinator) closeDay(ctx context.Context, day clock.Day) error {
	start := time.Date(day.Year, time.Month(day.Month), day.Day, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	earned, err := c.store.AggregateDay(ctx, start, end)
	if err != nil {
		return err
	}

	var rows []*models.ActivityDate
	for _, user := range c.registry.All() {
		points := models.Points{}
		if p, ok := earned[user.ID]; ok {
			points = *p
		}
		ad := &models.ActivityDate{
			UserID:        user.ID,
			Year:          day.Year,
			Month:         day.Month,
			Day:           day.Day,
			MessagePoints: points.MessagePoints,
			VoicePoints:   points.VoicePoints,
		}
		// inactive users get an in-memory placeholder only, the table
		// stays sparse
		if points.Total() > 0 {
			rows = append(rows, ad)
		}
		user.Stats.AddActivityDate(ad)
	}

	if err := c.store.InsertActivityDates(ctx, rows); err != nil {
		return err
	}
	c.engine.EnsureDay(day)

	slog.Info("Day closed",
		slog.String("type", "db"),
		slog.String("day", day.String()),
		slog.Int("active_users", len(rows)))
	return nil
}

func nextDay(d clock.Day) clock.Day {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return clock.UTCDayOf(t)
}
