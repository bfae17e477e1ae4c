package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"catyard/server/logging"
	"catyard/server/logging/colony"
)

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type keeperState struct {
	ID            string
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Hub owns the world, the connected keepers, and their websocket
// subscriptions. All world access goes through the hub mutex.
type Hub struct {
	mu          sync.Mutex
	world       *World
	keepers     map[string]*keeperState
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	cfg         Config
	publisher   logging.Publisher
	store       *RosterStore
}

func newHub(cfg Config, publisher logging.Publisher, store *RosterStore) *Hub {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	hub := &Hub{
		world:       newWorld(cfg, publisher, nil),
		keepers:     make(map[string]*keeperState),
		subscribers: make(map[string]*subscriber),
		cfg:         cfg,
		publisher:   publisher,
		store:       store,
	}
	hub.restoreRoster()
	return hub
}

// restoreRoster reloads persisted cats, or seeds a fresh colony when nothing
// was saved.
func (h *Hub) restoreRoster() {
	if h.store != nil {
		roster, ok, err := h.store.Load()
		if err != nil {
			log.Printf("failed to load roster, starting fresh: %v", err)
		} else if ok && len(roster.Cats) > 0 {
			for _, cat := range roster.Cats {
				h.world.restoreCat(cat, roster.NextCat)
			}
			return
		}
	}
	h.world.seedCats(h.cfg.StartingCats)
	h.saveRosterLocked()
}

// saveRosterLocked snapshots the roster to the store. Callers hold h.mu (or
// run before the hub is shared).
func (h *Hub) saveRosterLocked() {
	if h.store == nil {
		return
	}
	roster := rosterFile{NextCat: h.world.nextCat, Cats: h.world.SnapshotCats()}
	if err := h.store.Save(roster); err != nil {
		log.Printf("failed to save roster: %v", err)
	}
}

// Join registers a keeper and returns the current snapshot.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	keeperID := fmt.Sprintf("keeper-%d", id)

	h.mu.Lock()
	h.keepers[keeperID] = &keeperState{ID: keeperID, lastHeartbeat: time.Now()}
	cats := h.world.SnapshotCats()
	placements := h.world.SnapshotPlacements()
	h.mu.Unlock()

	return joinResponse{
		Ver:        ProtocolVersion,
		ID:         keeperID,
		Cats:       cats,
		Placements: placements,
		Yard: yardInfo{
			Width:    h.cfg.YardWidth,
			Height:   h.cfg.YardHeight,
			TickRate: h.cfg.TickRate,
		},
	}
}

// Subscribe attaches a websocket connection to a joined keeper. A second
// subscription for the same keeper replaces the first.
func (h *Hub) Subscribe(keeperID string, conn *websocket.Conn) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	keeper, ok := h.keepers[keeperID]
	if !ok {
		return nil, false
	}
	keeper.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[keeperID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[keeperID] = sub
	return sub, true
}

// Disconnect drops a keeper and its subscription.
func (h *Hub) Disconnect(keeperID string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[keeperID]
	if subOK {
		delete(h.subscribers, keeperID)
	}
	delete(h.keepers, keeperID)
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
}

// UpdateHeartbeat records a keeper heartbeat and returns its RTT.
func (h *Hub) UpdateHeartbeat(keeperID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	keeper, ok := h.keepers[keeperID]
	if !ok {
		return 0, false
	}
	keeper.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			keeper.lastRTT = rtt
		}
	}
	return keeper.lastRTT, true
}

// PlaceItem drops an item on behalf of a keeper.
func (h *Hub) PlaceItem(kind PlacementKind, x, y float64) Placement {
	h.mu.Lock()
	defer h.mu.Unlock()
	placement, _ := h.world.PlaceItem(kind, x, y)
	return placement
}

// PetCat pets the nearest cat to the clicked point.
func (h *Hub) PetCat(keeperID string, x, y float64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.PetCat(keeperID, x, y)
}

// AdoptCat adds a cat to the colony and persists the roster.
func (h *Hub) AdoptCat(name, coat string) Cat {
	h.mu.Lock()
	defer h.mu.Unlock()
	cat := h.world.AdoptCat(name, coat)
	h.saveRosterLocked()
	return cat
}

// ReleaseCat removes a cat and persists the roster.
func (h *Hub) ReleaseCat(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok := h.world.ReleaseCat(id)
	if ok {
		h.saveRosterLocked()
	}
	return ok
}

// advance runs one tick: expire keepers that stopped heartbeating, step the
// world, and snapshot for broadcast.
func (h *Hub) advance(now time.Time, dt float64) (stateMessage, []*subscriber) {
	h.mu.Lock()

	var toClose []*subscriber
	for id, keeper := range h.keepers {
		if now.Sub(keeper.lastHeartbeat) > disconnectAfter {
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
				delete(h.subscribers, id)
			}
			delete(h.keepers, id)
			log.Printf("disconnecting %s due to heartbeat timeout", id)
		}
	}

	h.world.advance(now, dt)
	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       "state",
		Cats:       h.world.SnapshotCats(),
		Placements: h.world.SnapshotPlacements(),
		Tick:       h.world.tick,
		ServerTime: now.UnixMilli(),
	}
	h.mu.Unlock()

	return msg, toClose
}

// RunSimulation drives the fixed-timestep loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	interval := time.Second / time.Duration(h.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(h.cfg.TickRate)
			}
			last = now

			started := time.Now()
			msg, toClose := h.advance(now, dt)
			elapsed := time.Since(started)
			if elapsed > interval {
				colony.TickBudgetOverrun(context.Background(), h.publisher, msg.Tick, colony.TickBudgetOverrunPayload{
					DurationMillis: elapsed.Milliseconds(),
					BudgetMillis:   interval.Milliseconds(),
					Ratio:          float64(elapsed) / float64(interval),
				})
			}

			for _, sub := range toClose {
				sub.conn.Close()
			}
			h.broadcastState(msg)
		}
	}
}

// broadcastState fans the tick snapshot out to every subscriber. A failed
// write disconnects that keeper.
func (h *Hub) broadcastState(msg stateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			log.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}
}

// DiagnosticsSnapshot reports keeper liveness for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsKeeper {
	h.mu.Lock()
	defer h.mu.Unlock()

	keepers := make([]diagnosticsKeeper, 0, len(h.keepers))
	for _, keeper := range h.keepers {
		keepers = append(keepers, diagnosticsKeeper{
			ID:            keeper.ID,
			LastHeartbeat: keeper.lastHeartbeat.UnixMilli(),
			RTTMillis:     keeper.lastRTT.Milliseconds(),
		})
	}
	return keepers
}

// GridDebugInfo exposes the world's grid statistics for diagnostics.
func (h *Hub) GridDebugInfo() GridDebugInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.DebugInfo()
}

// SaveRoster persists the roster outside the tick loop (shutdown path).
func (h *Hub) SaveRoster() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saveRosterLocked()
}
