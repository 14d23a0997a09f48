package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// OcrEvent represents one point in an OCR request's lifecycle.
type OcrEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	DocType        string                 `json:"doc_type"`
	CacheKey       string                 `json:"cache_key,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	CacheHit       bool                   `json:"cache_hit"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of OCR event
type EventType string

const (
	// RequestStarted when an extraction begins
	RequestStarted EventType = "request_started"
	// RequestCompleted when an extraction finishes successfully
	RequestCompleted EventType = "request_completed"
	// RequestFailed when an extraction fails
	RequestFailed EventType = "request_failed"
	// CacheHit when a result is served from the cache
	CacheHit EventType = "cache_hit"
	// CacheMiss when the external model had to be called
	CacheMiss EventType = "cache_miss"
	// TypeDetected when a classification call resolves a document type
	TypeDetected EventType = "type_detected"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event OcrEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event OcrEvent)
}

// LoggingObserver logs OCR events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles OCR events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event OcrEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"doc_type":   event.DocType,
	}
	if event.CacheKey != "" {
		fields["cache_key"] = event.CacheKey
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case RequestStarted:
		o.logger.WithFields(fields).Debug("OCR request started")
	case RequestCompleted:
		o.logger.WithFields(fields).Info("OCR request completed")
	case RequestFailed:
		o.logger.WithFields(fields).Error("OCR request failed")
	case CacheHit:
		o.logger.WithFields(fields).Info("OCR cache hit")
	case CacheMiss:
		o.logger.WithFields(fields).Info("OCR cache miss")
	case TypeDetected:
		o.logger.WithFields(fields).Info("Document type detected")
	default:
		o.logger.WithFields(fields).Info("OCR event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from OCR events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRequests       int64
	succeededRequests   int64
	failedRequests      int64
	cacheHits           int64
	cacheMisses         int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles OCR events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event OcrEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RequestStarted:
		o.totalRequests++
	case RequestCompleted:
		o.succeededRequests++
		o.totalProcessingTime += event.ProcessingTime
	case RequestFailed:
		o.failedRequests++
	case CacheHit:
		o.cacheHits++
	case CacheMiss:
		o.cacheMisses++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.succeededRequests > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.succeededRequests)
	}

	return map[string]interface{}{
		"total_requests":      o.totalRequests,
		"succeeded_requests":  o.succeededRequests,
		"failed_requests":     o.failedRequests,
		"cache_hits":          o.cacheHits,
		"cache_misses":        o.cacheMisses,
		"avg_processing_time": avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
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

// NotifyObservers notifies all observers of an event. Observers run on
// their own goroutines so a slow or panicking observer cannot stall the
// request path.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event OcrEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				_ = recover()
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
