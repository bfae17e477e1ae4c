package sinks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"catyard/server/logging"
	"catyard/server/logging/sinks"
)

func TestConsoleSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsole(&buf)

	err := sink.Write(logging.Event{
		Type:     "colony.cat_petted",
		Tick:     42,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: "keeper-1", Kind: logging.EntityKindKeeper},
		Targets:  []logging.EntityRef{{ID: "cat-3", Kind: logging.EntityKindCat}},
		Payload:  map[string]any{"reach": 40},
	})
	if err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"[colony.cat_petted]", "tick=42", "actor=keeper:keeper-1", "severity=info", "targets=cat:cat-3", `payload={"reach":40}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected console line to contain %q, got %q", want, line)
		}
	}
}

func TestJSONSinkEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewJSON(&buf, 0)

	for i := 0; i < 3; i++ {
		err := sink.Write(logging.Event{
			Type:     "colony.placement_created",
			Tick:     uint64(i),
			Time:     time.Now(),
			Severity: logging.SeverityInfo,
		})
		if err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d", len(lines))
	}
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if decoded["type"] != "colony.placement_created" {
			t.Fatalf("unexpected type on line %d: %v", i, decoded["type"])
		}
	}
}

func TestMemorySink(t *testing.T) {
	sink := sinks.NewMemory()
	sink.Write(logging.Event{Type: "a"})
	sink.Write(logging.Event{Type: "b"})

	events := sink.Events()
	if len(events) != 2 || events[0].Type != "a" || events[1].Type != "b" {
		t.Fatalf("expected ordered events, got %+v", events)
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to drop events")
	}
}
