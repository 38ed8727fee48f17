package chat

import (
	"testing"

	"github.com/GeoFlame/GeoChat/internal/protocol"
)

func TestStore_GetOrCreate(t *testing.T) {
	s := NewStore(100, false)

	r1, created := s.GetOrCreate("R1", true, "alice")
	if !created {
		t.Fatal("GetOrCreate() created = false, want true for first reference")
	}
	if r1.Creator != "alice" || !r1.Public {
		t.Errorf("room = {creator: %s, public: %v}, want alice/true", r1.Creator, r1.Public)
	}

	// A second reference returns the same instance and keeps the original flags.
	r2, created := s.GetOrCreate("R1", false, "bob")
	if created {
		t.Error("GetOrCreate() created = true, want false for existing room")
	}
	if r2 != r1 {
		t.Error("GetOrCreate() returned a different instance for the same code")
	}
	if r2.Creator != "alice" || !r2.Public {
		t.Error("second reference overwrote creation-time attributes")
	}
}

func TestStore_RemoveOnlyMatchingInstance(t *testing.T) {
	s := NewStore(100, false)

	old, _ := s.GetOrCreate("R1", false, "alice")
	old.mu.Lock()
	old.closed = true
	old.mu.Unlock()
	s.Remove(old)
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}

	// A rebuilt room under the same code must not be removed by a stale handle.
	fresh, _ := s.GetOrCreate("R1", false, "bob")
	s.Remove(old)
	if s.Lookup("R1") != fresh {
		t.Error("Remove() with a stale handle deleted the rebuilt room")
	}
}

func TestStore_PersistentBansSurviveTeardown(t *testing.T) {
	s := NewStore(100, true)

	r, _ := s.GetOrCreate("R1", false, "alice")
	r.mu.Lock()
	r.bans["troll"] = struct{}{}
	r.closed = true
	r.mu.Unlock()
	s.Remove(r)

	rebuilt, _ := s.GetOrCreate("R1", false, "bob")
	if _, banned := rebuilt.bans["troll"]; !banned {
		t.Error("rebuilt room did not inherit the persisted ban list")
	}
}

func TestStore_EphemeralBansDiscardedOnTeardown(t *testing.T) {
	s := NewStore(100, false)

	r, _ := s.GetOrCreate("R1", false, "alice")
	r.mu.Lock()
	r.bans["troll"] = struct{}{}
	r.closed = true
	r.mu.Unlock()
	s.Remove(r)

	rebuilt, _ := s.GetOrCreate("R1", false, "bob")
	if len(rebuilt.bans) != 0 {
		t.Errorf("rebuilt room bans = %d entries, want 0", len(rebuilt.bans))
	}
}

func TestRoom_HistoryEviction(t *testing.T) {
	r := &Room{Code: "R1", limit: 2, members: map[string]*Conn{}, bans: map[string]struct{}{}}

	r.mu.Lock()
	for _, c := range []string{"a", "b", "c"} {
		r.appendHistory(protocol.Message{Author: "x", Content: c})
	}
	snapshot := r.snapshotHistory()
	r.mu.Unlock()

	if len(snapshot) != 2 {
		t.Fatalf("history = %d records, want 2", len(snapshot))
	}
	if snapshot[0].Content != "b" || snapshot[1].Content != "c" {
		t.Errorf("history = [%s, %s], want [b, c]", snapshot[0].Content, snapshot[1].Content)
	}
}

func TestRoom_HistorySnapshotIsACopy(t *testing.T) {
	r := &Room{Code: "R1", members: map[string]*Conn{}, bans: map[string]struct{}{}}

	r.mu.Lock()
	r.appendHistory(protocol.Message{Author: "alice", Content: "hi"})
	snapshot := r.snapshotHistory()
	r.mu.Unlock()

	snapshot[0].Content = "tampered"
	r.mu.Lock()
	got := r.history[0].Content
	r.mu.Unlock()
	if got != "hi" {
		t.Error("mutating the snapshot leaked into the room history")
	}
}

func TestStore_PublicSkipsPrivateAndClosed(t *testing.T) {
	s := NewStore(100, false)

	pub, _ := s.GetOrCreate("lobby", true, "alice")
	pub.mu.Lock()
	pub.members["alice"] = &Conn{}
	pub.mu.Unlock()
	s.GetOrCreate("secret", false, "bob")
	gone, _ := s.GetOrCreate("gone", true, "carol")
	gone.mu.Lock()
	gone.closed = true
	gone.mu.Unlock()

	rooms := s.Public()
	if len(rooms) != 1 {
		t.Fatalf("Public() = %d entries, want 1", len(rooms))
	}
	if rooms[0].Code != "lobby" || rooms[0].Online != 1 {
		t.Errorf("Public()[0] = %+v, want {lobby 1}", rooms[0])
	}
}
