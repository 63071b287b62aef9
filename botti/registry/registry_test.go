package registry

import (
	"context"
	"testing"

	"github.com/sakkee/eetubotti/botti/database"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := database.New(context.Background(), database.DBConfig{
		Path: "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return New(database.NewStore(db))
}

func TestAddIfNotExistsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	u1 := r.AddIfNotExists(MemberInfo{ID: 1, Name: "eetu", Identifier: "0", InGuild: true})
	u2 := r.AddIfNotExists(MemberInfo{ID: 1, Name: "eetu", Identifier: "0", InGuild: true})
	if u1 != u2 {
		t.Fatal("same id must return the same live object")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestAddIfNotExistsReconcilesDrift(t *testing.T) {
	r := newTestRegistry(t)

	r.AddIfNotExists(MemberInfo{ID: 1, Name: "old", Identifier: "0", InGuild: true})
	u := r.AddIfNotExists(MemberInfo{ID: 1, Name: "new", Identifier: "1234", InGuild: true})
	if u.Name != "new" || u.Identifier != "1234" {
		t.Errorf("drift not reconciled: %q %q", u.Name, u.Identifier)
	}
}

func TestFromMessageDoesNotImplyMembership(t *testing.T) {
	r := newTestRegistry(t)

	r.AddIfNotExists(MemberInfo{ID: 1, Name: "leaver", InGuild: true})
	r.OnMemberLeave(1)
	u := r.AddIfNotExists(MemberInfo{ID: 1, Name: "leaver", FromMessage: true})
	if u.IsInGuild {
		t.Error("a message sighting must not flip IsInGuild back on")
	}
	if len(u.Roles) != 0 {
		t.Errorf("roles must stay cleared after leave, got %v", u.Roles)
	}
}

func TestSearchByName(t *testing.T) {
	r := newTestRegistry(t)

	r.AddIfNotExists(MemberInfo{ID: 1, Name: "megis", InGuild: true})
	r.AddIfNotExists(MemberInfo{ID: 2, Name: "eeddspeaks", InGuild: true})
	r.AddIfNotExists(MemberInfo{ID: 3, Name: "gone", InGuild: false, FromMessage: true})

	got := r.SearchByName("megis", 5)
	if len(got) == 0 || got[0].ID != 1 {
		t.Fatalf("SearchByName(megis) = %v", got)
	}
	for _, u := range r.SearchByName("gone", 5) {
		if u.ID == 3 {
			t.Error("search must skip users no longer in the guild")
		}
	}
}
