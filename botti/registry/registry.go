// Package registry owns the in-memory user objects. Every component
// mutates users through the single instance living here; the store only
// sees them at flush time.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sahilm/fuzzy"

	"github.com/sakkee/eetubotti/botti/database"
	"github.com/sakkee/eetubotti/botti/database/models"
)

type Registry struct {
	store *database.Store

	mu    sync.RWMutex
	users []*models.User
	byID  map[snowflake.ID]*models.User
}

func New(store *database.Store) *Registry {
	return &Registry{
		store: store,
		byID:  make(map[snowflake.ID]*models.User),
	}
}

// Load hydrates the registry from the store. Called once at startup
// before any gateway event is handled.
func (r *Registry) Load(ctx context.Context) error {
	users, err := r.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
	r.byID = make(map[snowflake.ID]*models.User, len(users))
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return nil
}

// GetByID returns the user or nil. The returned pointer is the live
// object, shared with every other component.
func (r *Registry) GetByID(id snowflake.ID) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// All returns a snapshot slice of the current users. The slice is a
// copy; the user pointers are shared.
func (r *Registry) All() []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// MemberInfo carries the platform-side fields AddIfNotExists reconciles
// against the stored user.
type MemberInfo struct {
	ID         snowflake.ID
	Name       string
	Identifier string
	Bot        bool
	Roles      []snowflake.ID
	InGuild    bool
	// FromMessage marks a sighting through message traffic: the author
	// may have left the guild, so guild membership is not implied.
	FromMessage bool
}

// AddIfNotExists registers an unseen user or reconciles a known one.
// The store is only touched when something actually drifted, so calling
// this on every message is cheap.
func (r *Registry) AddIfNotExists(info MemberInfo) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[info.ID]
	if !ok {
		u = &models.User{
			ID:         info.ID,
			Name:       info.Name,
			Bot:        info.Bot,
			Identifier: info.Identifier,
			Stats:      models.NewStats(info.ID),
			IsInGuild:  info.InGuild,
		}
		u.SetRoles(info.Roles)
		u.RefreshLevel()
		r.users = append(r.users, u)
		r.byID[u.ID] = u
		r.store.AddUser(u)
		slog.Info("New user registered",
			slog.String("type", "sys"),
			slog.String("user_id", u.ID.String()),
			slog.String("name", u.Name))
		return u
	}

	if info.Roles != nil {
		u.SetRoles(info.Roles)
	}
	if !info.FromMessage {
		u.IsInGuild = true
	}
	if u.Name != info.Name || u.Identifier != info.Identifier {
		u.Name = info.Name
		u.Identifier = info.Identifier
		r.store.AddUser(u)
	}
	return u
}

// SetProfile updates the cached avatar path, queuing a store write only
// on change.
func (r *Registry) SetProfile(id snowflake.ID, filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.ProfileFilename == filename {
		return
	}
	u.ProfileFilename = filename
	r.store.AddUser(u)
}

// OnMemberLeave clears guild-scoped state but keeps the record: stats
// survive a rejoin.
func (r *Registry) OnMemberLeave(id snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return
	}
	u.SetRoles(nil)
	u.IsInGuild = false
}

// SearchByName fuzzy-matches current guild members by name, best match
// first.
func (r *Registry) SearchByName(query string, limit int) []*models.User {
	r.mu.RLock()
	candidates := make([]*models.User, 0, len(r.users))
	names := make([]string, 0, len(r.users))
	for _, u := range r.users {
		if !u.IsInGuild {
			continue
		}
		candidates = append(candidates, u)
		names = append(names, u.Name)
	}
	r.mu.RUnlock()

	matches := fuzzy.Find(query, names)
	out := make([]*models.User, 0, limit)
	for _, m := range matches {
		out = append(out, candidates[m.Index])
		if len(out) == limit {
			break
		}
	}
	return out
}
