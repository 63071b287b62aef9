package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/sakkee/eetubotti/botti/database/models"
)

// Store is the write-behind persistence layer. Mutations queue entities
// into a pending buffer; Flush drains the buffer to sqlite in one pass.
// A failed row is logged and dropped, never re-queued.
type Store struct {
	db *bun.DB

	mu      sync.Mutex
	pending pendingChanges
}

type pendingChanges struct {
	users     []*models.User
	stats     []*models.Stats
	messages  []*models.Message
	sessions  []*models.VoiceSession
	reactions []*models.Reaction
}

func NewStore(db *DB) *Store {
	return &Store{db: db.BunDB()}
}

// AddUser queues a user and its stats row for the next flush. Used both
// for new users and for updating drifted name/identifier/avatar fields.
func (s *Store) AddUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.users = append(s.pending.users, user)
	if user.Stats != nil {
		s.pending.stats = append(s.pending.stats, user.Stats)
	}
}

func (s *Store) AddMessage(msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.messages = append(s.pending.messages, msg)
}

func (s *Store) AddVoiceSession(session *models.VoiceSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.sessions = append(s.pending.sessions, session)
}

// AddReaction queues a reaction unless the same (message, emoji) pair is
// already waiting.
func (s *Store) AddReaction(reaction *models.Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.pending.reactions {
		if r.MessageID == reaction.MessageID && r.EmojiID == reaction.EmojiID {
			return
		}
	}
	s.pending.reactions = append(s.pending.reactions, reaction)
}

// QueueDirtyStats queues the stats of every user whose counters changed
// since the last flush.
func (s *Store) QueueDirtyStats(users []*models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued := make(map[snowflake.ID]bool, len(s.pending.stats))
	for _, st := range s.pending.stats {
		queued[st.UserID] = true
	}
	for _, u := range users {
		if u.Stats == nil || !u.Stats.ShouldUpdate || queued[u.Stats.UserID] {
			continue
		}
		s.pending.stats = append(s.pending.stats, u.Stats)
	}
}

// PendingCount returns how many entities are waiting for the next flush.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &s.pending
	return len(p.users) + len(p.stats) + len(p.messages) + len(p.sessions) + len(p.reactions)
}

// Flush swaps the pending buffer for an empty one and writes the drained
// entities. New mutations arriving during the write land in the fresh
// buffer and are picked up next time.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	drained := s.pending
	s.pending = pendingChanges{}
	s.mu.Unlock()

	total := len(drained.users) + len(drained.stats) + len(drained.messages) +
		len(drained.sessions) + len(drained.reactions)
	if total == 0 {
		return nil
	}
	start := time.Now()

	for _, u := range drained.users {
		s.writeUser(ctx, u)
	}
	for _, st := range drained.stats {
		s.writeStats(ctx, st)
	}
	for _, m := range drained.messages {
		s.writeMessage(ctx, m)
	}
	for _, vs := range drained.sessions {
		s.writeVoiceSession(ctx, vs)
	}
	for _, r := range drained.reactions {
		s.writeReaction(ctx, r)
	}

	slog.Debug("Store flushed",
		slog.String("type", "db"),
		slog.Int("entities", total),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Store) writeUser(ctx context.Context, user *models.User) {
	if !user.IsInDatabase {
		_, err := s.db.NewInsert().Model(user).Exec(ctx)
		if err == nil {
			user.IsInDatabase = true
			return
		}
		if !isConstraintViolation(err) {
			slog.Error("Failed to insert user",
				slog.String("type", "db"),
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err))
			return
		}
		// Row already exists (e.g. written before a crash); fall through
		// to an update.
		user.IsInDatabase = true
	}
	if _, err := s.db.NewUpdate().Model(user).
		Column("name", "profile_filename", "identifier").
		WherePK().
		Exec(ctx); err != nil {
		slog.Error("Failed to update user",
			slog.String("type", "db"),
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
	}
}

func (s *Store) writeStats(ctx context.Context, st *models.Stats) {
	if !st.IsInDatabase {
		if _, err := s.db.NewInsert().Model(st).Exec(ctx); err != nil {
			if !isConstraintViolation(err) {
				slog.Error("Failed to insert user stats",
					slog.String("type", "db"),
					slog.String("user_id", st.UserID.String()),
					slog.Any("error", err))
				return
			}
		}
		st.IsInDatabase = true
		st.ShouldUpdate = false
		return
	}
	if !st.ShouldUpdate {
		return
	}
	if _, err := s.db.NewUpdate().Model(st).
		Column("time_in_voice", "points", "total_post_length", "mentioned_times",
			"files_sent", "longest_streak", "first_post_time", "last_post_time",
			"gif_count", "emoji_count", "bot_command_count").
		WherePK().
		Exec(ctx); err != nil {
		slog.Error("Failed to update user stats",
			slog.String("type", "db"),
			slog.String("user_id", st.UserID.String()),
			slog.Any("error", err))
		return
	}
	st.ShouldUpdate = false
}

func (s *Store) writeMessage(ctx context.Context, msg *models.Message) {
	if _, err := s.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		if isConstraintViolation(err) {
			// Backfill crossed an id we already stored.
			return
		}
		slog.Error("Failed to insert message",
			slog.String("type", "db"),
			slog.String("message_id", msg.ID.String()),
			slog.Any("error", err))
	}
}

func (s *Store) writeVoiceSession(ctx context.Context, vs *models.VoiceSession) {
	if _, err := s.db.NewInsert().Model(vs).Exec(ctx); err != nil {
		slog.Error("Failed to insert voice session",
			slog.String("type", "db"),
			slog.String("user_id", vs.UserID.String()),
			slog.Any("error", err))
	}
}

func (s *Store) writeReaction(ctx context.Context, r *models.Reaction) {
	if !r.IsInDatabase {
		if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
			slog.Error("Failed to insert reaction",
				slog.String("type", "db"),
				slog.String("message_id", r.MessageID.String()),
				slog.Any("error", err))
			return
		}
		r.IsInDatabase = true
		return
	}
	if _, err := s.db.NewUpdate().Model(r).
		Column("count").
		Where("message_id = ?", r.MessageID).
		Where("emoji_id = ?", r.EmojiID).
		Exec(ctx); err != nil {
		slog.Error("Failed to update reaction",
			slog.String("type", "db"),
			slog.String("message_id", r.MessageID.String()),
			slog.Any("error", err))
	}
}
