package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestMetricsObserver_Counts(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	events := []PredictionEvent{
		{EventType: PredictionStarted, Source: "image"},
		{EventType: PredictionCompleted, Source: "image", PredictedClass: "A", ProcessingTime: 10 * time.Millisecond},
		{EventType: PredictionStarted, Source: "webcam"},
		{EventType: PredictionCompleted, Source: "webcam", PredictedClass: "A", ProcessingTime: 30 * time.Millisecond},
		{EventType: PredictionStarted, Source: "webcam"},
		{EventType: PredictionFailed, Source: "webcam", ErrorMessage: "invalid image"},
	}
	for _, e := range events {
		m.OnEvent(ctx, e)
	}

	got := m.GetMetrics()
	if got.TotalPredictions != 3 || got.SuccessfulPredictions != 2 || got.FailedPredictions != 1 {
		t.Errorf("Unexpected counters: %+v", got)
	}
	if got.AvgProcessingTimeMs != 20 {
		t.Errorf("Expected 20ms average, got %v", got.AvgProcessingTimeMs)
	}
	if got.PredictionsByLabel["A"] != 2 {
		t.Errorf("Expected 2 predictions of A, got %d", got.PredictionsByLabel["A"])
	}
	if got.PredictionsBySource["webcam"] != 2 || got.PredictionsBySource["image"] != 1 {
		t.Errorf("Unexpected per-source counts: %v", got.PredictionsBySource)
	}

	// snapshots must not alias internal state
	got.PredictionsByLabel["A"] = 100
	if m.GetMetrics().PredictionsByLabel["A"] != 2 {
		t.Error("Expected snapshot to be a copy")
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(logger).OnEvent(context.Background(), PredictionEvent{
		EventType:      PredictionCompleted,
		Source:         "image",
		PredictedClass: "B",
		Confidence:     0.7,
		ProcessingTime: 12 * time.Millisecond,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q", buf.String())
	}
	if entry["predicted_class"] != "B" || entry["msg"] != "Prediction completed" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
	if entry["processing_time_ms"] != float64(12) {
		t.Errorf("Expected processing_time_ms=12, got %v", entry["processing_time_ms"])
	}
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, PredictionEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                  { return "panicking" }

func TestEventPublisher_DeliversAndSurvivesPanics(t *testing.T) {
	original := logrus.StandardLogger().Out
	logrus.SetOutput(&strings.Builder{})
	defer logrus.SetOutput(original)

	p := NewEventPublisher()
	m := NewMetricsObserver()
	p.Subscribe(panickingObserver{})
	p.Subscribe(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.NotifyObservers(ctx, PredictionEvent{EventType: PredictionStarted, Source: "url"})
	p.Flush()

	if m.GetMetrics().TotalPredictions != 1 {
		t.Errorf("Expected event to reach the metrics observer")
	}

	p.Unsubscribe(m)
	p.NotifyObservers(context.Background(), PredictionEvent{EventType: PredictionStarted, Source: "url"})
	p.Flush()
	if m.GetMetrics().TotalPredictions != 1 {
		t.Errorf("Expected unsubscribed observer to receive nothing")
	}
}
