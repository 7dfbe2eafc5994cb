package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PredictionEvent represents a prediction lifecycle event
type PredictionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source"`
	UserID         string                 `json:"user_id,omitempty"`
	PredictedClass string                 `json:"predicted_class,omitempty"`
	Confidence     float32                `json:"confidence,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of prediction event
type EventType string

const (
	// PredictionStarted when an input has been accepted for classification
	PredictionStarted EventType = "prediction_started"
	// PredictionCompleted when a label has been produced
	PredictionCompleted EventType = "prediction_completed"
	// PredictionFailed when the input or the classifier failed
	PredictionFailed EventType = "prediction_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PredictionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PredictionEvent)
}

// LoggingObserver logs prediction events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event PredictionEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"source":             event.Source,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.PredictedClass != "" {
		fields["predicted_class"] = event.PredictedClass
		fields["confidence"] = event.Confidence
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case PredictionStarted:
		o.logger.WithFields(fields).Debug("Prediction started")
	case PredictionCompleted:
		o.logger.WithFields(fields).Info("Prediction completed")
	case PredictionFailed:
		o.logger.WithFields(fields).Error("Prediction failed")
	default:
		o.logger.WithFields(fields).Info("Prediction event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of the prediction counters
type Metrics struct {
	TotalPredictions      int64            `json:"total_predictions"`
	SuccessfulPredictions int64            `json:"successful_predictions"`
	FailedPredictions     int64            `json:"failed_predictions"`
	AvgProcessingTimeMs   float64          `json:"avg_processing_time_ms"`
	PredictionsByLabel    map[string]int64 `json:"predictions_by_label"`
	PredictionsBySource   map[string]int64 `json:"predictions_by_source"`
}

// MetricsObserver collects counters from prediction events
type MetricsObserver struct {
	mu                  sync.RWMutex
	total               int64
	successful          int64
	failed              int64
	totalProcessingTime time.Duration
	byLabel             map[string]int64
	bySource            map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		byLabel:  make(map[string]int64),
		bySource: make(map[string]int64),
	}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event PredictionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case PredictionStarted:
		o.total++
		o.bySource[event.Source]++
	case PredictionCompleted:
		o.successful++
		o.totalProcessingTime += event.ProcessingTime
		o.byLabel[event.PredictedClass]++
	case PredictionFailed:
		o.failed++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{
		TotalPredictions:      o.total,
		SuccessfulPredictions: o.successful,
		FailedPredictions:     o.failed,
		PredictionsByLabel:    make(map[string]int64, len(o.byLabel)),
		PredictionsBySource:   make(map[string]int64, len(o.bySource)),
	}
	if o.successful > 0 {
		avg := o.totalProcessingTime / time.Duration(o.successful)
		m.AvgProcessingTimeMs = float64(avg.Microseconds()) / 1000
	}
	for k, v := range o.byLabel {
		m.PredictionsByLabel[k] = v
	}
	for k, v := range o.bySource {
		m.PredictionsBySource[k] = v
	}
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer on its own goroutine.
// The request context may end before delivery, so observers get a context
// that is never cancelled.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PredictionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	ctx = context.WithoutCancel(ctx)

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush waits for in-flight deliveries.
func (p *EventPublisher) Flush() {
	p.wg.Wait()
}
