package database

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sakkee/eetubotti/botti/clock"
	"github.com/sakkee/eetubotti/botti/database/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), DBConfig{Path: "file:" + t.Name() + "?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func testUser(id snowflake.ID, name string) *models.User {
	u := &models.User{ID: id, Name: name, Identifier: "0", Stats: models.NewStats(id)}
	u.RefreshLevel()
	return u
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	u := testUser(100, "tester")
	u.Stats.Points = 4242
	u.Stats.GifCount = 3
	u.Stats.ShouldUpdate = true
	store.AddUser(u)

	store.AddMessage(&models.Message{
		ID: 5000, UserID: 100, Length: 42, CreatedAt: time.Now().Unix(), ActivityPoints: 24,
	})
	vs := models.NewVoiceSession(100, 1000)
	vs.MarkActive(1000)
	vs.MarkInactive(1600)
	vs.ActivityPoints = 60
	store.AddVoiceSession(vs)

	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if store.PendingCount() != 0 {
		t.Errorf("pending count after flush = %d, want 0", store.PendingCount())
	}
	if !u.IsInDatabase || !u.Stats.IsInDatabase {
		t.Error("flush must mark written entities as persisted")
	}

	users, err := store.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("loaded %d users, want 1", len(users))
	}
	got := users[0]
	if got.Name != "tester" || got.Stats.Points != 4242 || got.Stats.GifCount != 3 {
		t.Errorf("round-trip mismatch: %+v / %+v", got, got.Stats)
	}
	if got.Level != models.LevelForPoints(4242) {
		t.Errorf("loaded level = %d, want %d", got.Level, models.LevelForPoints(4242))
	}

	lastID, err := store.LastMessageID(ctx)
	if err != nil {
		t.Fatalf("last message id failed: %v", err)
	}
	if lastID != 5000 {
		t.Errorf("last message id = %d, want 5000", lastID)
	}
}

func TestStoreUpdateExistingUser(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	u := testUser(7, "before")
	store.AddUser(u)
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	u.Name = "after"
	u.Stats.Points = 99
	u.Stats.ShouldUpdate = true
	store.AddUser(u)
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("second flush failed: %v", err)
	}

	users, err := store.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if users[0].Name != "after" || users[0].Stats.Points != 99 {
		t.Errorf("update lost: %+v / %+v", users[0], users[0].Stats)
	}
}

func TestFlushKeepsConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.AddMessage(&models.Message{
				ID: snowflake.ID(1000 + i), UserID: 1, CreatedAt: int64(i), Length: 1,
			})
		}
	}()
	for i := 0; i < 20; i++ {
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
	}
	<-done
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("final flush failed: %v", err)
	}

	var count int
	err := store.db.NewSelect().Model((*models.Message)(nil)).ColumnExpr("COUNT(*)").Scan(ctx, &count)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 200 {
		t.Errorf("stored %d messages, want 200 (flush must not drop concurrent appends)", count)
	}
}

func TestAggregateDayIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	store.AddMessage(&models.Message{ID: 1, UserID: 42, CreatedAt: day.Add(2 * time.Hour).Unix(), ActivityPoints: 30})
	store.AddMessage(&models.Message{ID: 2, UserID: 42, CreatedAt: day.Add(3 * time.Hour).Unix(), ActivityPoints: 12})
	// Outside the window: must not count.
	store.AddMessage(&models.Message{ID: 3, UserID: 42, CreatedAt: next.Add(time.Hour).Unix(), ActivityPoints: 99})
	vs := models.NewVoiceSession(42, day.Add(4*time.Hour).Unix())
	vs.MarkActive(day.Add(4 * time.Hour).Unix())
	vs.MarkInactive(day.Add(5 * time.Hour).Unix())
	vs.ActivityPoints = 360
	store.AddVoiceSession(vs)
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	for round := 0; round < 2; round++ {
		totals, err := store.AggregateDay(ctx, day, next)
		if err != nil {
			t.Fatalf("aggregate failed: %v", err)
		}
		p := totals[42]
		if p == nil || p.MessagePoints != 42 || p.VoicePoints != 360 {
			t.Fatalf("round %d: totals = %+v, want message 42 voice 360", round, p)
		}

		ads := []*models.ActivityDate{{
			UserID: 42, Year: day.Year(), Month: int(day.Month()), Day: day.Day(),
			MessagePoints: p.MessagePoints, VoicePoints: p.VoicePoints,
		}}
		if err := store.InsertActivityDates(ctx, ads); err != nil {
			t.Fatalf("round %d: insert activity dates failed: %v", round, err)
		}
	}

	var count int
	err := store.db.NewSelect().Model((*models.ActivityDate)(nil)).ColumnExpr("COUNT(*)").Scan(ctx, &count)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("activity date rows = %d, want exactly 1 after replay", count)
	}
}

func TestDaylistAppendsToday(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	if err := store.InsertActivityDates(ctx, []*models.ActivityDate{
		{UserID: 1, Year: 2024, Month: 1, Day: 2, MessagePoints: 5},
		{UserID: 1, Year: 2024, Month: 1, Day: 3, MessagePoints: 5},
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	days, err := store.Daylist(ctx)
	if err != nil {
		t.Fatalf("daylist failed: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("daylist length = %d, want 3 (two stored days + today)", len(days))
	}
	if days[0] != (clock.Day{Year: 2024, Month: 1, Day: 2}) || days[1] != (clock.Day{Year: 2024, Month: 1, Day: 3}) {
		t.Errorf("daylist order wrong: %v", days)
	}
	if days[2] != clock.UTCDayOf(time.Now()) {
		t.Errorf("daylist must end with today, got %v", days[2])
	}
}
