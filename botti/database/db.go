package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sakkee/eetubotti/botti/database/models"
)

const defaultQueryTimeout = 10 * time.Second

type DBConfig struct {
	Path string `toml:"path" validate:"required"`
}

// DB wraps the bun handle over the embedded sqlite file.
type DB struct {
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	dsn := cfg.Path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=busy_timeout(5000)"
	} else {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}
	// sqlite writes are serialized anyway; more connections just fight
	// over the file lock.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection established",
		slog.String("type", "db"),
		slog.String("path", cfg.Path))
	return &DB{bunDB: bunDB}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() error {
	return db.bunDB.Close()
}

// InitializeSchema creates the tables and indexes if they do not exist.
// There is no migration story: altering an existing table is a manual
// operation.
func (db *DB) InitializeSchema(ctx context.Context) error {
	start := time.Now()

	tables := []any{
		(*models.User)(nil),
		(*models.Stats)(nil),
		(*models.Message)(nil),
		(*models.VoiceSession)(nil),
		(*models.ActivityDate)(nil),
		(*models.Reaction)(nil),
	}
	for _, table := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(table).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", table, err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
		unique  bool
	}{
		{"idx_messages_created_at", (*models.Message)(nil), []string{"created_at"}, false},
		{"idx_messages_user_id", (*models.Message)(nil), []string{"user_id"}, false},
		{"idx_voice_sessions_end_time", (*models.VoiceSession)(nil), []string{"end_time"}, false},
		{"idx_activity_dates_day", (*models.ActivityDate)(nil), []string{"user_id", "year", "month", "day"}, true},
		{"idx_reactions_message", (*models.Reaction)(nil), []string{"message_id", "emoji_id"}, false},
	}
	for _, idx := range indexes {
		q := db.bunDB.NewCreateIndex().
			Model(idx.model).
			IfNotExists().
			Index(idx.name).
			Column(idx.columns...)
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}
