package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"catyard/server/logging"
	"catyard/server/logging/colony"
)

// Cat is the wire-visible state of one colony member.
type Cat struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Coat   string  `json:"coat"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Energy float64 `json:"energy"`
}

type PlacementKind string

const (
	PlacementFood  PlacementKind = "food"
	PlacementToy   PlacementKind = "toy"
	PlacementLaser PlacementKind = "laser"
)

// Placement is an item a keeper dropped into the yard.
type Placement struct {
	ID        string        `json:"id"`
	Kind      PlacementKind `json:"kind"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	ExpiresAt int64         `json:"expiresAt"`
}

type catState struct {
	Cat
	wanderX    float64
	wanderY    float64
	retargetAt time.Time
	chasing    string // placement id, empty while wandering
}

type placementState struct {
	Placement
	expiresAt time.Time
}

var defaultCatNames = []string{"Mochi", "Biscuit", "Pixel", "Clover", "Sprocket", "Nori", "Waffle", "Juniper"}

var defaultCoats = []string{"tabby", "calico", "tuxedo", "siamese", "ginger"}

// World owns every cat and placement in the yard plus the spatial grid that
// indexes the cats. It is not safe for concurrent use; the hub serializes
// access under its mutex.
type World struct {
	cfg        Config
	cats       map[string]*catState
	placements map[string]*placementState
	grid       *SpatialGrid
	publisher  logging.Publisher
	rng        *rand.Rand

	tick          uint64
	nextCat       uint64
	nextPlacement uint64
}

func newWorld(cfg Config, publisher logging.Publisher, rng *rand.Rand) *World {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &World{
		cfg:        cfg,
		cats:       make(map[string]*catState),
		placements: make(map[string]*placementState),
		grid:       NewSpatialGrid(cfg.CellSize),
		publisher:  publisher,
		rng:        rng,
	}
}

// seedCats populates the yard with n randomly named cats. Used on fresh
// startup when no roster was restored.
func (w *World) seedCats(n int) {
	for i := 0; i < n; i++ {
		name := defaultCatNames[w.rng.Intn(len(defaultCatNames))]
		coat := defaultCoats[w.rng.Intn(len(defaultCoats))]
		w.AdoptCat(name, coat)
	}
}

// AdoptCat adds a cat at a random spot and indexes it.
func (w *World) AdoptCat(name, coat string) Cat {
	w.nextCat++
	id := fmt.Sprintf("cat-%d", w.nextCat)
	if name == "" {
		name = defaultCatNames[w.rng.Intn(len(defaultCatNames))]
	}
	if coat == "" {
		coat = defaultCoats[w.rng.Intn(len(defaultCoats))]
	}
	state := &catState{
		Cat: Cat{
			ID:     id,
			Name:   name,
			Coat:   coat,
			X:      w.randomX(),
			Y:      w.randomY(),
			Energy: maxEnergy,
		},
	}
	state.wanderX = state.X
	state.wanderY = state.Y
	w.cats[id] = state
	w.grid.Insert(id, state.X, state.Y)
	colony.CatAdopted(context.Background(), w.publisher, w.tick, id, name)
	return state.Cat
}

// restoreCat reinstates a persisted cat with its saved identity and position.
func (w *World) restoreCat(cat Cat, counter uint64) {
	if cat.ID == "" {
		return
	}
	if counter > w.nextCat {
		w.nextCat = counter
	}
	cat.X = clamp(cat.X, catHalf, w.cfg.YardWidth-catHalf)
	cat.Y = clamp(cat.Y, catHalf, w.cfg.YardHeight-catHalf)
	state := &catState{Cat: cat}
	state.wanderX = state.X
	state.wanderY = state.Y
	w.cats[cat.ID] = state
	w.grid.Insert(cat.ID, state.X, state.Y)
}

// ReleaseCat removes a cat from the colony. Returns false when the id is
// unknown.
func (w *World) ReleaseCat(id string) bool {
	if _, ok := w.cats[id]; !ok {
		return false
	}
	delete(w.cats, id)
	w.grid.Remove(id)
	colony.CatReleased(context.Background(), w.publisher, w.tick, id)
	return true
}

// PlaceItem drops an item into the yard and attracts every cat the grid
// finds within the item's reach. Returns the placement and the attracted ids.
func (w *World) PlaceItem(kind PlacementKind, x, y float64) (Placement, []string) {
	w.nextPlacement++
	id := fmt.Sprintf("placement-%d", w.nextPlacement)
	ttl := w.ttlFor(kind)
	now := time.Now()
	state := &placementState{
		Placement: Placement{
			ID:        id,
			Kind:      kind,
			X:         x,
			Y:         y,
			ExpiresAt: now.Add(ttl).UnixMilli(),
		},
		expiresAt: now.Add(ttl),
	}
	w.placements[id] = state

	noticed := w.grid.FindInRadius(x, y, w.attractRadius(kind))
	for _, catID := range noticed {
		if cat, ok := w.cats[catID]; ok {
			cat.chasing = id
		}
	}
	colony.PlacementCreated(context.Background(), w.publisher, w.tick, id, colony.PlacementPayload{
		Kind: string(kind),
		X:    x,
		Y:    y,
		TTL:  ttl.Milliseconds(),
	})
	colony.PlacementNoticed(context.Background(), w.publisher, w.tick, id, noticed)
	return state.Placement, noticed
}

// PetCat pets the cat nearest to (x, y) within petting reach. Returns the
// cat's id, or false when no cat is close enough.
func (w *World) PetCat(keeperID string, x, y float64) (string, bool) {
	candidates := w.grid.FindInRadius(x, y, petReach)
	bestID := ""
	bestDistSq := math.MaxFloat64
	for _, id := range candidates {
		cat, ok := w.cats[id]
		if !ok {
			continue
		}
		dx := cat.X - x
		dy := cat.Y - y
		if distSq := dx*dx + dy*dy; distSq < bestDistSq {
			bestDistSq = distSq
			bestID = id
		}
	}
	if bestID == "" {
		return "", false
	}
	cat := w.cats[bestID]
	cat.Energy = math.Min(maxEnergy, cat.Energy+petEnergyGain)
	colony.CatPetted(context.Background(), w.publisher, w.tick, keeperID, bestID)
	return bestID, true
}

// advance runs one fixed-timestep tick: placements expire, every cat steers
// and moves, and the grid is re-indexed from the new positions.
func (w *World) advance(now time.Time, dt float64) {
	w.tick++

	for id, placement := range w.placements {
		if now.After(placement.expiresAt) {
			delete(w.placements, id)
			for _, cat := range w.cats {
				if cat.chasing == id {
					cat.chasing = ""
				}
			}
		}
	}

	for _, cat := range w.cats {
		targetX, targetY, speed := w.steer(cat, now)
		dx := targetX - cat.X
		dy := targetY - cat.Y
		dist := math.Hypot(dx, dy)
		if dist > arriveDistance {
			cat.X += dx / dist * speed * dt
			cat.Y += dy / dist * speed * dt
		} else if cat.chasing != "" {
			if placement, ok := w.placements[cat.chasing]; ok && placement.Kind == PlacementFood {
				cat.Energy = math.Min(maxEnergy, cat.Energy+petEnergyGain*dt)
			}
		}

		cat.X = clamp(cat.X, catHalf, w.cfg.YardWidth-catHalf)
		cat.Y = clamp(cat.Y, catHalf, w.cfg.YardHeight-catHalf)
		cat.Energy = math.Max(0, cat.Energy-energyDrainPerSec*dt)

		w.grid.Update(cat.ID, cat.X, cat.Y)
	}
}

// steer resolves a cat's current destination and speed. Chasing a placement
// wins over wandering; a stale chase target falls back to wandering.
func (w *World) steer(cat *catState, now time.Time) (float64, float64, float64) {
	if cat.chasing != "" {
		if placement, ok := w.placements[cat.chasing]; ok {
			return placement.X, placement.Y, attractSpeed
		}
		cat.chasing = ""
	}
	if now.After(cat.retargetAt) {
		cat.wanderX = w.randomX()
		cat.wanderY = w.randomY()
		cat.retargetAt = now.Add(wanderRetarget + time.Duration(w.rng.Int63n(int64(wanderRetarget))))
	}
	return cat.wanderX, cat.wanderY, wanderSpeed
}

// SnapshotCats returns the wire state of every cat, in unspecified order.
func (w *World) SnapshotCats() []Cat {
	cats := make([]Cat, 0, len(w.cats))
	for _, cat := range w.cats {
		cats = append(cats, cat.Cat)
	}
	return cats
}

// SnapshotPlacements returns the wire state of every live placement.
func (w *World) SnapshotPlacements() []Placement {
	placements := make([]Placement, 0, len(w.placements))
	for _, placement := range w.placements {
		placements = append(placements, placement.Placement)
	}
	return placements
}

// DebugInfo exposes the grid occupancy snapshot for diagnostics.
func (w *World) DebugInfo() GridDebugInfo {
	return w.grid.DebugInfo()
}

func (w *World) attractRadius(kind PlacementKind) float64 {
	switch kind {
	case PlacementFood:
		return foodAttractRadius
	case PlacementLaser:
		return laserAttractRadius
	default:
		return toyAttractRadius
	}
}

func (w *World) ttlFor(kind PlacementKind) time.Duration {
	switch kind {
	case PlacementFood:
		return w.cfg.FoodTTL()
	case PlacementLaser:
		return w.cfg.LaserTTL()
	default:
		return w.cfg.ToyTTL()
	}
}

func (w *World) randomX() float64 {
	return catHalf + w.rng.Float64()*(w.cfg.YardWidth-2*catHalf)
}

func (w *World) randomY() float64 {
	return catHalf + w.rng.Float64()*(w.cfg.YardHeight-2*catHalf)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
