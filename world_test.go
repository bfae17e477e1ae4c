package main

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"catyard/server/logging"
	"catyard/server/logging/colony"
)

type recordingPublisher struct {
	events []logging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event logging.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(eventType logging.EventType) []logging.Event {
	var matched []logging.Event
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func newTestWorld(t *testing.T) (*World, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	world := newWorld(DefaultConfig(), pub, rand.New(rand.NewSource(1)))
	return world, pub
}

// placeCat pins a cat at an exact spot so proximity assertions are exact.
func placeCat(w *World, name string, x, y float64) string {
	cat := w.AdoptCat(name, "tabby")
	state := w.cats[cat.ID]
	state.X = x
	state.Y = y
	state.wanderX = x
	state.wanderY = y
	state.retargetAt = time.Now().Add(time.Hour)
	w.grid.Update(cat.ID, x, y)
	return cat.ID
}

func TestWorldPlaceItemAttractsNearbyCats(t *testing.T) {
	world, pub := newTestWorld(t)
	near := placeCat(world, "Mochi", 100, 100)
	alsoNear := placeCat(world, "Biscuit", 180, 100)
	far := placeCat(world, "Pixel", 700, 500)

	_, noticed := world.PlaceItem(PlacementFood, 100, 100)

	found := map[string]bool{}
	for _, id := range noticed {
		found[id] = true
	}
	if !found[near] || !found[alsoNear] {
		t.Fatalf("expected both nearby cats to notice the food, got %v", noticed)
	}
	if found[far] {
		t.Fatalf("did not expect the far cat to notice the food")
	}
	if world.cats[near].chasing == "" || world.cats[alsoNear].chasing == "" {
		t.Fatalf("expected noticed cats to chase the placement")
	}
	if world.cats[far].chasing != "" {
		t.Fatalf("expected far cat to keep wandering")
	}

	if events := pub.byType(colony.EventPlacementCreated); len(events) != 1 {
		t.Fatalf("expected one placement_created event, got %d", len(events))
	}
	events := pub.byType(colony.EventPlacementNoticed)
	if len(events) != 1 || len(events[0].Targets) != 2 {
		t.Fatalf("expected placement_noticed with two targets, got %+v", events)
	}
}

func TestWorldAdvanceMovesChasingCatTowardPlacement(t *testing.T) {
	world, _ := newTestWorld(t)
	catID := placeCat(world, "Mochi", 100, 100)
	world.PlaceItem(PlacementFood, 200, 100)

	before := math.Hypot(world.cats[catID].X-200, world.cats[catID].Y-100)
	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second / defaultTickRate)
		world.advance(now, 1.0/defaultTickRate)
	}
	after := math.Hypot(world.cats[catID].X-200, world.cats[catID].Y-100)

	if after >= before {
		t.Fatalf("expected cat to close on the food bowl, distance went %v -> %v", before, after)
	}

	// The grid must track the movement: a radius-zero self query still works.
	state := world.cats[catID]
	found := false
	for _, id := range world.grid.FindInRadius(state.X, state.Y, 0) {
		if id == catID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected grid to be re-indexed at the cat's new position")
	}
}

func TestWorldPlacementExpires(t *testing.T) {
	world, _ := newTestWorld(t)
	catID := placeCat(world, "Mochi", 100, 100)
	world.PlaceItem(PlacementLaser, 120, 100)

	if len(world.placements) != 1 {
		t.Fatalf("expected one live placement")
	}
	if world.cats[catID].chasing == "" {
		t.Fatalf("expected cat to chase the laser")
	}

	expired := time.Now().Add(world.cfg.LaserTTL() + time.Second)
	world.advance(expired, 1.0/defaultTickRate)

	if len(world.placements) != 0 {
		t.Fatalf("expected placement to expire")
	}
	if world.cats[catID].chasing != "" {
		t.Fatalf("expected cat to stop chasing an expired placement")
	}
}

func TestWorldPetCatPicksNearest(t *testing.T) {
	world, pub := newTestWorld(t)
	nearest := placeCat(world, "Mochi", 105, 100)
	placeCat(world, "Biscuit", 130, 100)
	placeCat(world, "Pixel", 500, 500)

	energyBefore := world.cats[nearest].Energy
	world.cats[nearest].Energy = energyBefore - 20

	catID, ok := world.PetCat("keeper-1", 100, 100)
	if !ok || catID != nearest {
		t.Fatalf("expected to pet the nearest cat %s, got %s ok=%v", nearest, catID, ok)
	}
	if world.cats[nearest].Energy <= energyBefore-20 {
		t.Fatalf("expected petting to raise energy")
	}
	if events := pub.byType(colony.EventCatPetted); len(events) != 1 {
		t.Fatalf("expected one cat_petted event, got %d", len(events))
	}

	if _, ok := world.PetCat("keeper-1", 300, 300); ok {
		t.Fatalf("expected no cat within petting reach at (300,300)")
	}
}

func TestWorldReleaseCat(t *testing.T) {
	world, pub := newTestWorld(t)
	catID := placeCat(world, "Mochi", 100, 100)

	if !world.ReleaseCat(catID) {
		t.Fatalf("expected release of a known cat to succeed")
	}
	if world.grid.Has(catID) {
		t.Fatalf("expected released cat to leave the grid")
	}
	if world.ReleaseCat(catID) {
		t.Fatalf("expected second release to report unknown cat")
	}
	if events := pub.byType(colony.EventCatReleased); len(events) != 1 {
		t.Fatalf("expected one cat_released event, got %d", len(events))
	}
}

func TestWorldRestoreCat(t *testing.T) {
	world, _ := newTestWorld(t)
	world.restoreCat(Cat{ID: "cat-7", Name: "Waffle", Coat: "ginger", X: -50, Y: 10000, Energy: 60}, 7)

	state, ok := world.cats["cat-7"]
	if !ok {
		t.Fatalf("expected restored cat to exist")
	}
	if state.X < catHalf || state.Y > world.cfg.YardHeight-catHalf {
		t.Fatalf("expected restored position to be clamped to the yard, got (%v, %v)", state.X, state.Y)
	}
	if !world.grid.Has("cat-7") {
		t.Fatalf("expected restored cat to be indexed")
	}

	// The counter must advance past restored ids so new adoptions stay unique.
	cat := world.AdoptCat("Clover", "calico")
	if cat.ID == "cat-7" {
		t.Fatalf("expected a fresh id after restore, got %s", cat.ID)
	}
}

func TestWorldSeedCats(t *testing.T) {
	world, pub := newTestWorld(t)
	world.seedCats(4)

	if len(world.cats) != 4 {
		t.Fatalf("expected 4 cats, got %d", len(world.cats))
	}
	if world.grid.Len() != 4 {
		t.Fatalf("expected grid to index every seeded cat")
	}
	for _, cat := range world.SnapshotCats() {
		if cat.X < catHalf || cat.X > world.cfg.YardWidth-catHalf || cat.Y < catHalf || cat.Y > world.cfg.YardHeight-catHalf {
			t.Fatalf("expected seeded cat inside the yard, got %+v", cat)
		}
	}
	if events := pub.byType(colony.EventCatAdopted); len(events) != 4 {
		t.Fatalf("expected 4 adoption events, got %d", len(events))
	}
}

func TestWorldWanderStaysInsideYard(t *testing.T) {
	world, _ := newTestWorld(t)
	world.seedCats(3)

	now := time.Now()
	for i := 0; i < 200; i++ {
		now = now.Add(time.Second / defaultTickRate)
		world.advance(now, 1.0/defaultTickRate)
	}

	for _, cat := range world.SnapshotCats() {
		if cat.X < catHalf || cat.X > world.cfg.YardWidth-catHalf || cat.Y < catHalf || cat.Y > world.cfg.YardHeight-catHalf {
			t.Fatalf("cat escaped the yard: %+v", cat)
		}
	}
	if world.grid.Len() != 3 {
		t.Fatalf("expected grid to keep tracking all cats, got %d", world.grid.Len())
	}
}
