package bus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/logger"
)

func TestEventLogger_LogAndRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "events.jsonl")

	el, err := NewEventLogger(logPath)
	if err != nil {
		t.Fatalf("NewEventLogger() error = %v", err)
	}
	defer el.Close()

	start := time.Now().Add(-time.Second)
	for i, topic := range []string{TopicShardOpened, TopicShardClosed, TopicCollectionCompleted} {
		if err := el.Log(topic, NewEvent(topic, "test", "run-1", i)); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	events, err := el.ReadEvents(start, 0)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("ReadEvents() returned %d events, want 3", len(events))
	}
	if events[0].Topic != TopicShardOpened || events[2].Topic != TopicCollectionCompleted {
		t.Errorf("events out of order: %s ... %s", events[0].Topic, events[2].Topic)
	}

	limited, err := el.ReadEvents(start, 2)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ReadEvents(limit=2) returned %d events", len(limited))
	}

	future, _ := el.ReadEvents(time.Now().Add(time.Hour), 0)
	if len(future) != 0 {
		t.Errorf("ReadEvents(future) returned %d events, want 0", len(future))
	}
}

func TestEventLogger_SkipsMalformedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(logPath, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	el, err := NewEventLogger(logPath)
	if err != nil {
		t.Fatalf("NewEventLogger() error = %v", err)
	}
	defer el.Close()

	el.Log("t", Event{ID: "ok"})

	events, err := el.ReadEvents(time.Time{}, 0)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Event.ID != "ok" {
		t.Errorf("ReadEvents() = %+v, want single event ok", events)
	}
}

func TestEventLogger_Closed(t *testing.T) {
	el, err := NewEventLogger(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if err := el.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := el.Log("t", Event{}); err == nil {
		t.Error("Log() after Close() should fail")
	}
	if err := el.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestLoggedBus(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	el, err := NewEventLogger(logPath)
	if err != nil {
		t.Fatal(err)
	}

	bus := NewLoggedBus(NewMemoryBus(logger.Discard()), el, logger.Discard())
	if err := bus.Publish(context.Background(), TopicShardClosed, Event{ID: "e1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("event log should not be empty after publish")
	}
}

func TestNewBus(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		b, err := NewBus(config.BusConfig{Type: "memory"}, nil, logger.Discard())
		if err != nil {
			t.Fatalf("NewBus() error = %v", err)
		}
		defer b.Close()
		if _, ok := b.(*MemoryBus); !ok {
			t.Errorf("NewBus() = %T, want *MemoryBus", b)
		}
	})

	t.Run("memory with event log and recorder", func(t *testing.T) {
		b, err := NewBus(config.BusConfig{
			Type:     "memory",
			EventLog: filepath.Join(t.TempDir(), "events.jsonl"),
		}, &fakeRecorder{}, logger.Discard())
		if err != nil {
			t.Fatalf("NewBus() error = %v", err)
		}
		defer b.Close()
		ib, ok := b.(*InstrumentedBus)
		if !ok {
			t.Fatalf("NewBus() = %T, want *InstrumentedBus", b)
		}
		if _, ok := ib.inner.(*LoggedBus); !ok {
			t.Errorf("inner bus = %T, want *LoggedBus", ib.inner)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewBus(config.BusConfig{Type: "nats"}, nil, logger.Discard())
		if !errors.IsValidation(err) {
			t.Errorf("NewBus(nats) error = %v, want validation error", err)
		}
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		_, err := NewBus(config.BusConfig{Type: "kafka"}, nil, logger.Discard())
		if !errors.IsValidation(err) {
			t.Errorf("NewBus(kafka) error = %v, want validation error", err)
		}
	})
}
