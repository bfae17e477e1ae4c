package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRosterStore(t *testing.T, name string) *RosterStore {
	t.Helper()
	appName := fmt.Sprintf("catyard_test_%s_%d", name, time.Now().UnixNano())
	store := newRosterStore(appName)
	if !store.Persistent() {
		t.Skip("local data store unavailable in this environment")
	}
	t.Cleanup(func() {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			os.RemoveAll(filepath.Join(homeDir, ".local", "share", appName))
		}
	})
	return store
}

func TestRosterStoreRoundTrip(t *testing.T) {
	store := newTestRosterStore(t, "roundtrip")

	roster := rosterFile{
		NextCat: 3,
		Cats: []Cat{
			{ID: "cat-1", Name: "Mochi", Coat: "tabby", X: 100, Y: 200, Energy: 80},
			{ID: "cat-3", Name: "Nori", Coat: "tuxedo", X: 300, Y: 150, Energy: 55},
		},
	}
	if err := store.Save(roster); err != nil {
		t.Fatalf("failed to save roster: %v", err)
	}

	loaded, ok, err := store.Load()
	if err != nil {
		t.Fatalf("failed to load roster: %v", err)
	}
	if !ok {
		t.Fatalf("expected saved roster to be found")
	}
	if loaded.NextCat != roster.NextCat || len(loaded.Cats) != len(roster.Cats) {
		t.Fatalf("roster mismatch: saved %+v, loaded %+v", roster, loaded)
	}
	for i := range roster.Cats {
		if loaded.Cats[i] != roster.Cats[i] {
			t.Fatalf("cat %d mismatch: saved %+v, loaded %+v", i, roster.Cats[i], loaded.Cats[i])
		}
	}
}

func TestRosterStoreEmpty(t *testing.T) {
	store := newTestRosterStore(t, "empty")

	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error loading empty store: %v", err)
	}
	if ok {
		t.Fatalf("expected a fresh store to report no roster")
	}
}

func TestRosterStoreDegradedMode(t *testing.T) {
	store := newRosterStore("")
	if store.Persistent() {
		t.Fatalf("expected empty app name to disable persistence")
	}
	if err := store.Save(rosterFile{NextCat: 1}); err != nil {
		t.Fatalf("degraded save must be a no-op, got %v", err)
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("degraded load must report nothing, got ok=%v err=%v", ok, err)
	}
}
