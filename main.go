package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"catyard/server/logging"
	"catyard/server/logging/sinks"
)

func buildRouter(cfg Config) *logging.Router {
	logCfg := logging.DefaultConfig()
	if len(cfg.Logging.Sinks) > 0 {
		logCfg.EnabledSinks = cfg.Logging.Sinks
	}
	logCfg.MinimumSeverity = cfg.Logging.Severity()

	var named []logging.NamedSink
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: sinks.NewConsole(os.Stdout)})
	}
	if logCfg.HasSink("json") {
		path := cfg.Logging.JSONFilePath
		if path == "" {
			path = "catyard-events.ndjson"
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("failed to open json log file %s: %v", path, err)
		} else {
			named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(file, 2*time.Second)})
		}
	}
	return logging.NewRouter(nil, logCfg, named)
}

func main() {
	configPath := flag.String("config", "catyard.yaml", "path to the yard config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	router := buildRouter(cfg)
	store := newRosterStore(cfg.StorageApp)
	if !store.Persistent() {
		log.Printf("roster persistence disabled, colony will not survive restarts")
	}

	hub := newHub(cfg, router, store)
	stop := make(chan struct{})
	go hub.RunSimulation(stop)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	http.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Status     string              `json:"status"`
			ServerTime int64               `json:"serverTime"`
			Keepers    []diagnosticsKeeper `json:"keepers"`
			Grid       GridDebugInfo       `json:"grid"`
			Logging    logging.RouterStats `json:"logging"`
			TickRate   int                 `json:"tickRate"`
			Heartbeat  int64               `json:"heartbeatMillis"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Keepers:    hub.DiagnosticsSnapshot(),
			Grid:       hub.GridDebugInfo(),
			Logging:    router.Stats(),
			TickRate:   cfg.TickRate,
			Heartbeat:  heartbeatInterval.Milliseconds(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	http.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		join := hub.Join()
		data, err := json.Marshal(join)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		keeperID := r.URL.Query().Get("id")
		if keeperID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed for %s: %v", keeperID, err)
			return
		}

		sub, ok := hub.Subscribe(keeperID, conn)
		if !ok {
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown keeper")
			conn.WriteMessage(websocket.CloseMessage, message)
			conn.Close()
			return
		}

		serveKeeper(hub, keeperID, sub, conn)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("yard listening on %s", cfg.Addr)
		errCh <- http.ListenAndServe(cfg.Addr, nil)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server failed: %v", err)
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	close(stop)
	hub.SaveRoster()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := router.Close(shutdownCtx); err != nil {
		log.Printf("failed to flush logging: %v", err)
	}
}

// serveKeeper reads client messages for one connection until it drops.
func serveKeeper(hub *Hub, keeperID string, sub *subscriber, conn *websocket.Conn) {
	writeJSON := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		sub.mu.Lock()
		defer sub.mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			hub.Disconnect(keeperID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("discarding malformed message from %s: %v", keeperID, err)
			continue
		}

		switch msg.Type {
		case "place":
			kind := PlacementKind(msg.Kind)
			switch kind {
			case PlacementFood, PlacementToy, PlacementLaser:
				hub.PlaceItem(kind, msg.X, msg.Y)
			default:
				log.Printf("unknown placement kind %q from %s", msg.Kind, keeperID)
			}
		case "pet":
			catID, ok := hub.PetCat(keeperID, msg.X, msg.Y)
			result := petResultMessage{Ver: ProtocolVersion, Type: "petResult", CatID: catID, OK: ok}
			if err := writeJSON(result); err != nil {
				hub.Disconnect(keeperID)
				return
			}
		case "adopt":
			hub.AdoptCat(msg.Name, msg.Coat)
		case "release":
			if !hub.ReleaseCat(msg.CatID) {
				log.Printf("release ignored for unknown cat %s", msg.CatID)
			}
		case "heartbeat":
			now := time.Now()
			rtt, ok := hub.UpdateHeartbeat(keeperID, now, msg.SentAt)
			if !ok {
				continue
			}
			ack := heartbeatMessage{
				Ver:        ProtocolVersion,
				Type:       "heartbeat",
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			if err := writeJSON(ack); err != nil {
				hub.Disconnect(keeperID)
				return
			}
		default:
			log.Printf("unknown message type %q from %s", msg.Type, keeperID)
		}
	}
}
