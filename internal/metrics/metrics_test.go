package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_counter", "A test counter", nil)

	if c.Value() != 0 {
		t.Errorf("expected initial value 0, got %d", c.Value())
	}

	c.Inc()
	c.Add(5)
	if c.Value() != 6 {
		t.Errorf("expected value 6, got %d", c.Value())
	}

	// Counters can't decrease
	c.Add(-10)
	if c.Value() != 6 {
		t.Errorf("expected value 6 after Add(-10), got %d", c.Value())
	}

	c.Reset()
	if c.Value() != 0 {
		t.Errorf("expected value 0 after Reset(), got %d", c.Value())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "A test gauge", nil)

	g.Set(0.6012)
	if g.Value() != 0.6012 {
		t.Errorf("expected value 0.6012, got %v", g.Value())
	}

	g.Set(42)
	g.Inc()
	if g.Value() != 43 {
		t.Errorf("expected value 43 after Inc(), got %v", g.Value())
	}

	g.Dec()
	g.Add(-0.5)
	if g.Value() != 41.5 {
		t.Errorf("expected value 41.5, got %v", g.Value())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_hist", "A test histogram", []float64{10, 1, 100})

	for _, v := range []float64{0.5, 5, 50, 500} {
		h.Observe(v)
	}

	if h.Count() != 4 {
		t.Errorf("Count() = %d, want 4", h.Count())
	}
	if h.Sum() != 555.5 {
		t.Errorf("Sum() = %v, want 555.5", h.Sum())
	}

	// Buckets are sorted and counts are cumulative: <=1, <=10, <=100, +Inf
	want := []int64{1, 2, 3, 4}
	got := h.BucketCounts()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BucketCounts()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestVecOrdering(t *testing.T) {
	gv := NewGaugeVec("g", "help", []string{"run"})
	gv.WithLabels("b").Set(2)
	gv.WithLabels("a").Set(1)
	gv.WithLabels("b").Set(3)

	all := gv.GetAll()
	if len(all) != 2 {
		t.Fatalf("GetAll() returned %d gauges, want 2", len(all))
	}
	if all[0].Labels()["run"] != "a" || all[1].Value() != 3 {
		t.Errorf("GetAll() not ordered by labels or not reusing gauges")
	}
}

func TestMetrics_RecordCollection(t *testing.T) {
	m := New()

	m.RecordLine()
	m.RecordLine()
	m.RecordLine()
	m.RecordDocument(true)
	m.RecordDocument(false)
	m.RecordDocument(true)
	m.RecordShardClosed(2)
	m.RecordConversion(1500 * time.Millisecond)

	if m.LinesRead.Value() != 3 {
		t.Errorf("LinesRead = %d, want 3", m.LinesRead.Value())
	}
	if m.DocumentsAccepted.Value() != 2 || m.DocumentsSkipped.Value() != 1 {
		t.Errorf("accepted/skipped = %d/%d, want 2/1", m.DocumentsAccepted.Value(), m.DocumentsSkipped.Value())
	}
	if m.ShardsWritten.Value() != 1 {
		t.Errorf("ShardsWritten = %d, want 1", m.ShardsWritten.Value())
	}
	if m.ConversionDuration.Value() != 1.5 {
		t.Errorf("ConversionDuration = %v, want 1.5", m.ConversionDuration.Value())
	}

	m.Reset()
	if m.LinesRead.Value() != 0 || m.ConversionDuration.Value() != 0 {
		t.Error("Reset() should zero scalar metrics")
	}
}

func TestMetrics_RecordBaseline(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordStep("search", 2*time.Second, nil)
	m.RecordStep("search", time.Second, context.Canceled)
	if err := m.RecordBaselineMetric(context.Background(), "run.txt", "ndcg_cut_10", 0.6012); err != nil {
		t.Fatalf("RecordBaselineMetric() error = %v", err)
	}

	if got := m.StepsTotal.WithLabels("search", "failed").Value(); got != 1 {
		t.Errorf("failed steps = %d, want 1", got)
	}
	if got := m.BaselineMetric.WithLabels("run.txt", "ndcg_cut_10").Value(); got != 0.6012 {
		t.Errorf("baseline metric = %v, want 0.6012", got)
	}
	if m.IsRedisPersisted() {
		t.Error("New() should not be Redis persisted")
	}
}

func TestNewWithConfig(t *testing.T) {
	if _, err := NewWithConfig("memory", ""); err != nil {
		t.Errorf("NewWithConfig(memory) error = %v", err)
	}
	if _, err := NewWithConfig("disk", ""); err == nil {
		t.Error("NewWithConfig(disk) should fail")
	}
	if _, err := NewWithConfig("redis", "redis://localhost:9999"); err == nil {
		t.Error("NewWithConfig(redis) with unreachable server should fail")
	}
}

func TestPrometheusFormat(t *testing.T) {
	m := New()
	m.RecordDocument(true)
	m.RecordShardClosed(1)
	m.RecordBusPublish("collection.progress", time.Millisecond, nil)
	m.RecordBaselineMetric(context.Background(), "r\"1", "judged_10", 0.25)

	out := m.PrometheusFormat()

	for _, want := range []string{
		"# TYPE irt_collection_documents_total counter",
		"irt_collection_documents_total 1",
		`irt_collection_shard_documents_bucket{le="1"} 1`,
		`irt_collection_shard_documents_bucket{le="+Inf"} 1`,
		`irt_baseline_metric{measure="judged_10",run="r\"1"} 0.25`,
		`irt_bus_events_published_total{topic="collection.progress"} 1`,
		`irt_bus_event_latency_seconds_count{topic="collection.progress"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("PrometheusFormat() missing %q\n%s", want, out)
		}
	}

	// Empty vectors are omitted entirely
	if strings.Contains(out, "irt_bus_errors_total") {
		t.Error("empty counter vector should not be exported")
	}
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.RecordDocument(true)

	path := filepath.Join(t.TempDir(), "textfile", "irtools.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != m.PrometheusFormat() {
		t.Error("written file does not match PrometheusFormat()")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}
}
