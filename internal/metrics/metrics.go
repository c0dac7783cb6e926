package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Collection sharder metrics
	LinesRead          *Counter
	DocumentsAccepted  *Counter
	DocumentsSkipped   *Counter
	ShardsWritten      *Counter
	ShardSize          *Histogram // documents per closed shard
	ConversionDuration *Gauge     // seconds

	// Baseline runner metrics
	StepsTotal     *CounterVec   // labels: kind, status
	StepDuration   *HistogramVec // labels: kind
	BaselineMetric *GaugeVec     // labels: run, measure

	// Bus metrics
	BusEventsPublished *CounterVec   // labels: topic
	BusEventLatency    *HistogramVec // labels: topic
	BusErrors          *CounterVec   // labels: topic

	// Redis storage (optional)
	redisStorage *RedisStorage

	startTime time.Time
	mu        sync.RWMutex
}

// New creates a new metrics instance with in-memory storage only.
func New() *Metrics {
	return newMetrics(nil)
}

// NewWithConfig creates a metrics instance with the given persistence.
// persistence is "memory" or "redis"; with "redis" an unreachable server is an error.
func NewWithConfig(persistence, redisURL string) (*Metrics, error) {
	switch persistence {
	case "", "memory":
		return New(), nil
	case "redis":
		storage, err := NewRedisStorage(redisURL)
		if err != nil {
			return nil, errors.Wrap(errors.CodeUnavailable, "metrics persistence unavailable", err)
		}
		return newMetrics(storage), nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown metrics persistence: %s", persistence))
	}
}

func newMetrics(storage *RedisStorage) *Metrics {
	return &Metrics{
		LinesRead: NewCounter(
			"irt_collection_lines_read_total",
			"Total number of non-blank input lines read",
			nil,
		),
		DocumentsAccepted: NewCounter(
			"irt_collection_documents_total",
			"Total number of documents written to shards",
			nil,
		),
		DocumentsSkipped: NewCounter(
			"irt_collection_documents_skipped_total",
			"Total number of input documents dropped for empty text",
			nil,
		),
		ShardsWritten: NewCounter(
			"irt_collection_shards_total",
			"Total number of shard files closed",
			nil,
		),
		ShardSize: NewHistogram(
			"irt_collection_shard_documents",
			"Documents per closed shard",
			[]float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		),
		ConversionDuration: NewGauge(
			"irt_collection_duration_seconds",
			"Wall-clock duration of the last conversion",
			nil,
		),
		StepsTotal: NewCounterVec(
			"irt_baseline_steps_total",
			"Baseline steps executed",
			[]string{"kind", "status"},
		),
		StepDuration: NewHistogramVec(
			"irt_baseline_step_duration_seconds",
			"Baseline step duration in seconds",
			[]string{"kind"},
			DefaultSecondsBuckets,
		),
		BaselineMetric: NewGaugeVec(
			"irt_baseline_metric",
			"Evaluation metric scraped for a baseline run",
			[]string{"run", "measure"},
		),
		BusEventsPublished: NewCounterVec(
			"irt_bus_events_published_total",
			"Total number of events published",
			[]string{"topic"},
		),
		BusEventLatency: NewHistogramVec(
			"irt_bus_event_latency_seconds",
			"Event publish latency in seconds",
			[]string{"topic"},
			[]float64{0.0001, 0.001, 0.01, 0.1, 1},
		),
		BusErrors: NewCounterVec(
			"irt_bus_errors_total",
			"Total number of failed publishes",
			[]string{"topic"},
		),
		redisStorage: storage,
		startTime:    time.Now(),
	}
}

// RecordLine records one non-blank input line.
func (m *Metrics) RecordLine() {
	m.LinesRead.Inc()
}

// RecordDocument records an accepted (true) or skipped (false) document.
func (m *Metrics) RecordDocument(accepted bool) {
	if accepted {
		m.DocumentsAccepted.Inc()
		return
	}
	m.DocumentsSkipped.Inc()
}

// RecordShardClosed records a finalized shard and its document count.
func (m *Metrics) RecordShardClosed(documents int) {
	m.ShardsWritten.Inc()
	m.ShardSize.Observe(float64(documents))
}

// RecordConversion records the duration of a finished conversion.
func (m *Metrics) RecordConversion(d time.Duration) {
	m.ConversionDuration.Set(d.Seconds())
}

// RecordStep records a baseline step outcome.
func (m *Metrics) RecordStep(kind string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.StepsTotal.WithLabels(kind, status).Inc()
	m.StepDuration.WithLabels(kind).Observe(d.Seconds())
}

// RecordBaselineMetric sets the gauge for a scraped metric and, when Redis
// persistence is configured, appends it to the run's history.
func (m *Metrics) RecordBaselineMetric(ctx context.Context, run, measure string, value float64) error {
	m.BaselineMetric.WithLabels(run, measure).Set(value)

	if m.redisStorage == nil {
		return nil
	}
	return m.redisStorage.SaveDataPoint(ctx, run+":"+measure, DataPoint{
		Timestamp: time.Now(),
		Value:     value,
	})
}

// RecordBusPublish records event bus publish metrics.
func (m *Metrics) RecordBusPublish(topic string, latency time.Duration, err error) {
	m.BusEventsPublished.WithLabels(topic).Inc()
	m.BusEventLatency.WithLabels(topic).Observe(latency.Seconds())

	if err != nil {
		m.BusErrors.WithLabels(topic).Inc()
	}
}

// Uptime returns the time since the metrics instance was created.
func (m *Metrics) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// Reset resets the scalar metrics to zero (useful for testing).
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LinesRead.Reset()
	m.DocumentsAccepted.Reset()
	m.DocumentsSkipped.Reset()
	m.ShardsWritten.Reset()
	m.ConversionDuration.Set(0)

	m.startTime = time.Now()
}

// Close releases resources. Must be called when Redis is used.
func (m *Metrics) Close() error {
	if m.redisStorage != nil {
		return m.redisStorage.Close()
	}
	return nil
}

// IsRedisPersisted returns true if metrics are persisted to Redis.
func (m *Metrics) IsRedisPersisted() bool {
	return m.redisStorage != nil
}
