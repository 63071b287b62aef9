package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
)

// LoadUsers hydrates every user with its stats row and recorded activity
// days. Users missing a stats row (should not happen, but tolerate it)
// get a fresh zero row.
func (s *Store) LoadUsers(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var users []*models.User
	if err := s.db.NewSelect().
		Model(&users).
		Relation("Stats").
		Scan(ctx); err != nil {
		return nil, wrapError("select", "users", err)
	}

	byID := make(map[snowflake.ID]*models.User, len(users))
	for _, u := range users {
		if u.Stats == nil {
			u.Stats = models.NewStats(u.ID)
		} else {
			u.Stats.IsInDatabase = true
			u.Stats.ActivityDates = make(map[clock.Day]*models.Points)
		}
		u.IsInDatabase = true
		byID[u.ID] = u
	}

	var dates []*models.ActivityDate
	if err := s.db.NewSelect().
		Model(&dates).
		Order("year", "month", "day").
		Scan(ctx); err != nil {
		return nil, wrapError("select", "activity_dates", err)
	}
	for _, ad := range dates {
		if u, ok := byID[ad.UserID]; ok {
			u.Stats.AddActivityDate(ad)
		}
	}

	for _, u := range users {
		u.RefreshLevel()
	}
	slog.Info("Users loaded from database",
		slog.String("type", "db"),
		slog.Int("users", len(users)),
		slog.Int("activity_dates", len(dates)))
	return users, nil
}

// Daylist returns every distinct activity day in ascending order, with
// the current UTC day appended when the store has not seen it yet.
func (s *Store) Daylist(ctx context.Context) ([]clock.Day, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var rows []struct {
		Year  int `bun:"year"`
		Month int `bun:"month"`
		Day   int `bun:"day"`
	}
	if err := s.db.NewSelect().
		Model((*models.ActivityDate)(nil)).
		Column("year", "month", "day").
		Group("year", "month", "day").
		Order("year", "month", "day").
		Scan(ctx, &rows); err != nil {
		return nil, wrapError("select", "daylist", err)
	}

	today := clock.UTCDayOf(time.Now())
	days := make([]clock.Day, 0, len(rows)+1)
	found := false
	for _, r := range rows {
		d := clock.Day{Year: r.Year, Month: r.Month, Day: r.Day}
		days = append(days, d)
		if d == today {
			found = true
		}
	}
	if !found {
		days = append(days, today)
	}
	return days, nil
}

// LastMessageID returns the newest stored message id, or zero when the
// messages table is empty. Backfill resumes from here.
func (s *Store) LastMessageID(ctx context.Context) (snowflake.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var max int64
	err := s.db.NewSelect().
		Model((*models.Message)(nil)).
		ColumnExpr("COALESCE(MAX(id), 0)").
		Scan(ctx, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, wrapError("select", "last message id", err)
	}
	return snowflake.ID(max), nil
}

// LoadReactions returns all stored reactions, newest message first.
func (s *Store) LoadReactions(ctx context.Context) ([]*models.Reaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var reactions []*models.Reaction
	if err := s.db.NewSelect().
		Model(&reactions).
		Order("message_id DESC").
		Scan(ctx); err != nil {
		return nil, wrapError("select", "reactions", err)
	}
	for _, r := range reactions {
		r.IsInDatabase = true
	}
	return reactions, nil
}

// AggregateDay recomputes per-user activity for the window [from, to)
// from the source tables: message points grouped over created_at, voice
// points grouped over end_time. Recomputing instead of accumulating
// makes the day rollover idempotent.
func (s *Store) AggregateDay(ctx context.Context, from, to time.Time) (map[snowflake.ID]*models.Points, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	type row struct {
		UserID snowflake.ID `bun:"user_id"`
		Points int          `bun:"act_points"`
	}

	var messageRows []row
	if err := s.db.NewSelect().
		Model((*models.Message)(nil)).
		Column("user_id").
		ColumnExpr("SUM(activity_points) AS act_points").
		Where("created_at >= ?", from.Unix()).
		Where("created_at < ?", to.Unix()).
		Group("user_id").
		Scan(ctx, &messageRows); err != nil {
		return nil, wrapError("select", "message aggregates", err)
	}

	var voiceRows []row
	if err := s.db.NewSelect().
		Model((*models.VoiceSession)(nil)).
		Column("user_id").
		ColumnExpr("SUM(activity_points) AS act_points").
		Where("end_time >= ?", from.Unix()).
		Where("end_time < ?", to.Unix()).
		Group("user_id").
		Scan(ctx, &voiceRows); err != nil {
		return nil, wrapError("select", "voice aggregates", err)
	}

	totals := make(map[snowflake.ID]*models.Points)
	for _, r := range messageRows {
		totals[r.UserID] = &models.Points{MessagePoints: r.Points}
	}
	for _, r := range voiceRows {
		p, ok := totals[r.UserID]
		if !ok {
			p = &models.Points{}
			totals[r.UserID] = p
		}
		p.VoicePoints += r.Points
	}
	return totals, nil
}

// InsertActivityDates writes closed-day rows. Replayed days hit the
// unique (user_id, year, month, day) index and are skipped, so calling
// this twice for the same day is harmless.
func (s *Store) InsertActivityDates(ctx context.Context, dates []*models.ActivityDate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	for _, ad := range dates {
		if _, err := s.db.NewInsert().Model(ad).Exec(ctx); err != nil {
			if isConstraintViolation(err) {
				continue
			}
			return wrapError("insert", "activity_date", err)
		}
	}
	return nil
}
