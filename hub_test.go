package main

import (
	"testing"
	"time"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageApp = "" // keep tests off the real data store
	return newHub(cfg, nil, newRosterStore(""))
}

func TestHubJoinReturnsSnapshot(t *testing.T) {
	hub := newTestHub(t)

	join := hub.Join()
	if join.Ver != ProtocolVersion {
		t.Fatalf("expected protocol version %d, got %d", ProtocolVersion, join.Ver)
	}
	if join.ID == "" {
		t.Fatalf("expected a keeper id")
	}
	if len(join.Cats) != defaultStartingCats {
		t.Fatalf("expected %d seeded cats, got %d", defaultStartingCats, len(join.Cats))
	}
	if join.Yard.Width != defaultYardWidth || join.Yard.TickRate != defaultTickRate {
		t.Fatalf("unexpected yard info %+v", join.Yard)
	}

	second := hub.Join()
	if second.ID == join.ID {
		t.Fatalf("expected unique keeper ids, both were %s", join.ID)
	}
}

func TestHubHeartbeat(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	now := time.Now()
	rtt, ok := hub.UpdateHeartbeat(join.ID, now, now.Add(-30*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat for a joined keeper to register")
	}
	if rtt < 0 {
		t.Fatalf("expected non-negative RTT, got %v", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("keeper-999", now, 0); ok {
		t.Fatalf("expected heartbeat for unknown keeper to be rejected")
	}
}

func TestHubAdvanceDropsSilentKeepers(t *testing.T) {
	hub := newTestHub(t)
	join := hub.Join()

	if got := hub.DiagnosticsSnapshot(); len(got) != 1 {
		t.Fatalf("expected one keeper before timeout, got %d", len(got))
	}

	msg, _ := hub.advance(time.Now().Add(disconnectAfter+time.Second), 1.0/defaultTickRate)
	if msg.Type != "state" || msg.Tick != 1 {
		t.Fatalf("unexpected state message %+v", msg)
	}
	if len(msg.Cats) != defaultStartingCats {
		t.Fatalf("expected %d cats in the snapshot, got %d", defaultStartingCats, len(msg.Cats))
	}

	for _, keeper := range hub.DiagnosticsSnapshot() {
		if keeper.ID == join.ID {
			t.Fatalf("expected silent keeper %s to be dropped", join.ID)
		}
	}
}

func TestHubAdoptAndRelease(t *testing.T) {
	hub := newTestHub(t)

	before := hub.GridDebugInfo().EntityCount
	cat := hub.AdoptCat("Waffle", "ginger")
	if hub.GridDebugInfo().EntityCount != before+1 {
		t.Fatalf("expected adoption to index the new cat")
	}

	if !hub.ReleaseCat(cat.ID) {
		t.Fatalf("expected release of %s to succeed", cat.ID)
	}
	if hub.GridDebugInfo().EntityCount != before {
		t.Fatalf("expected release to drop the cat from the grid")
	}
	if hub.ReleaseCat(cat.ID) {
		t.Fatalf("expected release of a gone cat to fail")
	}
}

func TestHubPlaceItemAndPet(t *testing.T) {
	hub := newTestHub(t)
	cat := hub.AdoptCat("Mochi", "tabby")

	placement := hub.PlaceItem(PlacementToy, 400, 300)
	if placement.ID == "" || placement.Kind != PlacementToy {
		t.Fatalf("unexpected placement %+v", placement)
	}

	// Petting right on top of the cat always reaches it.
	catID, ok := hub.PetCat("keeper-1", cat.X, cat.Y)
	if !ok || catID != cat.ID {
		t.Fatalf("expected to pet %s, got %s ok=%v", cat.ID, catID, ok)
	}
}
