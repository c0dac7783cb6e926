package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ricesearch/irtools/internal/bus"
	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
)

func TestStartAndClose(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Bus.EventLog = filepath.Join(dir, "events.jsonl")
	cfg.Metrics.OutputFile = filepath.Join(dir, "metrics.prom")

	rt, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	event := bus.NewEvent(bus.TopicCollectionProgress, "test", "run-1", map[string]int{"documents": 1})
	if err := rt.Bus.Publish(context.Background(), bus.TopicCollectionProgress, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	rt.Metrics.RecordShardClosed(3)

	if err := rt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(cfg.Metrics.OutputFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"irt_collection_shards_total 1", "irt_bus_events_published_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file missing %q", want)
		}
	}

	events, err := os.ReadFile(cfg.Bus.EventLog)
	if err != nil {
		t.Fatalf("event log not written: %v", err)
	}
	if !strings.Contains(string(events), bus.TopicCollectionProgress) {
		t.Errorf("event log missing published event:\n%s", events)
	}
}

func TestStart_InvalidPersistence(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Persistence = "etcd"

	if _, err := Start(cfg); !errors.IsValidation(err) {
		t.Errorf("Start() error = %v, want VALIDATION_ERROR", err)
	}
}
