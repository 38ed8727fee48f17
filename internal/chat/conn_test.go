package chat

import "testing"

func TestRegistry_AddRemove(t *testing.T) {
	reg := NewRegistry()
	c := reg.Add(&fakeSession{})

	if c.ID() == "" {
		t.Fatal("Add() assigned an empty connection id")
	}
	if reg.Get(c.ID()) != c {
		t.Error("Get() did not return the registered connection")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	reg.Remove(c.ID())
	if reg.Get(c.ID()) != nil {
		t.Error("Get() returned a removed connection")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestRegistry_ByName(t *testing.T) {
	reg := NewRegistry()
	a := reg.Add(&fakeSession{})
	b := reg.Add(&fakeSession{})
	c := reg.Add(&fakeSession{})

	a.bind("R1", "troll")
	b.bind("R2", "troll")
	c.bind("R1", "alice")

	if got := reg.ByName("troll"); len(got) != 2 {
		t.Errorf("ByName(troll) = %d connections, want 2", len(got))
	}
	if got := reg.ByName("nobody"); len(got) != 0 {
		t.Errorf("ByName(nobody) = %d connections, want 0", len(got))
	}

	// A connection that left a room no longer owns its old name.
	a.clear()
	if got := reg.ByName("troll"); len(got) != 1 {
		t.Errorf("ByName(troll) after clear = %d connections, want 1", len(got))
	}
}

func TestConn_BindResetsModerationFlags(t *testing.T) {
	c := &Conn{id: "x"}
	c.markKicked()
	if !c.silenced() {
		t.Fatal("silenced() = false after kick mark")
	}

	// Rejoining after a kick starts clean; a kick is not a ban.
	c.bind("R1", "troll")
	if c.silenced() {
		t.Error("silenced() = true after rebind, want false")
	}
	if c.Room() != "R1" || c.Name() != "troll" {
		t.Errorf("binding = (%s, %s), want (R1, troll)", c.Room(), c.Name())
	}
}
