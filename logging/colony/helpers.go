package colony

import (
	"context"

	"catyard/server/logging"
)

const (
	// EventCatAdopted is emitted when a cat joins the colony.
	EventCatAdopted logging.EventType = "colony.cat_adopted"
	// EventCatReleased is emitted when a cat leaves the colony.
	EventCatReleased logging.EventType = "colony.cat_released"
	// EventPlacementCreated is emitted when a keeper places an item in the yard.
	EventPlacementCreated logging.EventType = "colony.placement_created"
	// EventPlacementNoticed is emitted when the proximity query finds cats in
	// range of a fresh placement.
	EventPlacementNoticed logging.EventType = "colony.placement_noticed"
	// EventCatPetted is emitted when a keeper pets a cat.
	EventCatPetted logging.EventType = "colony.cat_petted"
	// EventTickBudgetOverrun is emitted when a simulation tick exceeds its budget.
	EventTickBudgetOverrun logging.EventType = "colony.tick_budget_overrun"
)

// PlacementPayload describes a placed item.
type PlacementPayload struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	TTL  int64   `json:"ttlMillis,omitempty"`
}

// CatAdopted publishes the adoption of a new cat.
func CatAdopted(ctx context.Context, pub logging.Publisher, tick uint64, catID, name string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCatAdopted,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryColony,
		Actor:    logging.EntityRef{ID: catID, Kind: logging.EntityKindCat},
		Payload:  map[string]any{"name": name},
	})
}

// CatReleased publishes the removal of a cat from the colony.
func CatReleased(ctx context.Context, pub logging.Publisher, tick uint64, catID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCatReleased,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryColony,
		Actor:    logging.EntityRef{ID: catID, Kind: logging.EntityKindCat},
	})
}

// PlacementCreated publishes a keeper placing an item.
func PlacementCreated(ctx context.Context, pub logging.Publisher, tick uint64, placementID string, payload PlacementPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlacementCreated,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryColony,
		Actor:    logging.EntityRef{ID: placementID, Kind: logging.EntityKindPlacement},
		Payload:  payload,
	})
}

// PlacementNoticed publishes the set of cats attracted by a placement.
func PlacementNoticed(ctx context.Context, pub logging.Publisher, tick uint64, placementID string, catIDs []string) {
	if pub == nil || len(catIDs) == 0 {
		return
	}
	targets := make([]logging.EntityRef, 0, len(catIDs))
	for _, id := range catIDs {
		targets = append(targets, logging.EntityRef{ID: id, Kind: logging.EntityKindCat})
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlacementNoticed,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryColony,
		Actor:    logging.EntityRef{ID: placementID, Kind: logging.EntityKindPlacement},
		Targets:  targets,
	})
}

// CatPetted publishes a keeper petting a cat.
func CatPetted(ctx context.Context, pub logging.Publisher, tick uint64, keeperID, catID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCatPetted,
		Tick:     tick,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryColony,
		Actor:    logging.EntityRef{ID: keeperID, Kind: logging.EntityKindKeeper},
		Targets:  []logging.EntityRef{{ID: catID, Kind: logging.EntityKindCat}},
	})
}

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds the configured budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Payload:  payload,
	})
}
