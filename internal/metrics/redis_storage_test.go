package metrics

import (
	"context"
	"testing"
	"time"
)

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	if _, err := NewRedisStorage("invalid://url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewRedisStorage_ConnectionFailure(t *testing.T) {
	if _, err := NewRedisStorage("redis://localhost:9999"); err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestMemberEncoding(t *testing.T) {
	dp := DataPoint{Timestamp: time.Unix(1592524800, 5), Value: 0.6012}

	member := encodeMember(dp)
	got, err := decodeMember(member)
	if err != nil {
		t.Fatalf("decodeMember(%q) error = %v", member, err)
	}
	if got != 0.6012 {
		t.Errorf("decodeMember() = %v, want 0.6012", got)
	}

	same := encodeMember(DataPoint{Timestamp: time.Unix(1592524801, 0), Value: 0.6012})
	if same == member {
		t.Error("equal values at different times must encode to distinct members")
	}

	if _, err := decodeMember("garbage"); err == nil {
		t.Error("decodeMember(garbage) should fail")
	}
}

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()
	metric := "anserini.covid-r4.abstract.qq.bm25.txt:ndcg_cut_10"
	defer storage.DeleteMetric(ctx, metric)

	now := time.Now()
	dataPoints := []DataPoint{
		{Timestamp: now.Add(-10 * time.Minute), Value: 0.5},
		{Timestamp: now.Add(-5 * time.Minute), Value: 0.5},
		{Timestamp: now, Value: 0.6012},
	}

	if err := storage.SaveBatch(ctx, metric, dataPoints[:2]); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if err := storage.SaveDataPoint(ctx, metric, dataPoints[2]); err != nil {
		t.Fatalf("SaveDataPoint() error = %v", err)
	}

	loaded, err := storage.LoadHistory(ctx, metric, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}

	if len(loaded) != len(dataPoints) {
		t.Fatalf("loaded %d points, want %d", len(loaded), len(dataPoints))
	}
	if loaded[2].Value != 0.6012 {
		t.Errorf("latest value = %v, want 0.6012", loaded[2].Value)
	}
}
