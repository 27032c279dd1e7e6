package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a record store event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Key is the logical key the event concerns.
	Key string `json:"key,omitempty"`

	// Table is the backend table, if applicable.
	Table string `json:"table,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for record store events.
const (
	EventTypeCollectionReplaced = "collection.replaced"
	EventTypeCollectionCleared  = "collection.cleared"
	EventTypeSettingUpdated     = "setting.updated"
	EventTypeSettingDeleted     = "setting.deleted"
	EventTypeReadDefaulted      = "read.defaulted"
	EventTypeWriteFailed        = "write.failed"
)

const eventSource = "recordstore"

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	deliveries  sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishCollectionReplaced publishes a collection replaced event.
func (ep *EventPublisher) PublishCollectionReplaced(key, table string, rows int) error {
	return ep.Publish(Event{
		Type:    EventTypeCollectionReplaced,
		Source:  eventSource,
		Key:     key,
		Table:   table,
		Message: fmt.Sprintf("Collection %s replaced with %d rows", table, rows),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"rows": rows,
		},
	})
}

// PublishCollectionCleared publishes a collection cleared event.
func (ep *EventPublisher) PublishCollectionCleared(key, table string) error {
	return ep.Publish(Event{
		Type:    EventTypeCollectionCleared,
		Source:  eventSource,
		Key:     key,
		Table:   table,
		Message: fmt.Sprintf("Collection %s cleared", table),
		Level:   EventLevelInfo,
	})
}

// PublishSettingUpdated publishes a setting updated event.
func (ep *EventPublisher) PublishSettingUpdated(key string) error {
	return ep.Publish(Event{
		Type:    EventTypeSettingUpdated,
		Source:  eventSource,
		Key:     key,
		Table:   "settings",
		Message: fmt.Sprintf("Setting %s updated", key),
		Level:   EventLevelInfo,
	})
}

// PublishSettingDeleted publishes a setting deleted event.
func (ep *EventPublisher) PublishSettingDeleted(key string) error {
	return ep.Publish(Event{
		Type:    EventTypeSettingDeleted,
		Source:  eventSource,
		Key:     key,
		Table:   "settings",
		Message: fmt.Sprintf("Setting %s deleted", key),
		Level:   EventLevelInfo,
	})
}

// PublishReadDefaulted publishes an event for a read that fell back to the default.
func (ep *EventPublisher) PublishReadDefaulted(key, table, reason string) error {
	level := EventLevelInfo
	if reason == "error" {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:    EventTypeReadDefaulted,
		Source:  eventSource,
		Key:     key,
		Table:   table,
		Message: fmt.Sprintf("Read of %s returned the default (%s)", key, reason),
		Level:   level,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishWriteFailed publishes a failed write or delete.
func (ep *EventPublisher) PublishWriteFailed(key, table, operation, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeWriteFailed,
		Source:  eventSource,
		Key:     key,
		Table:   table,
		Message: fmt.Sprintf("%s of %s failed: %s", operation, key, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"operation": operation,
			"reason":    reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
// Batches are delivered when full or when the flush interval elapses.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	var tick <-chan time.Time
	if ep.config.FlushInterval > 0 {
		ticker := time.NewTicker(ep.config.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-tick:
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Drain whatever is still buffered before shutting down
			for len(ep.buffer) > 0 {
				batch = append(batch, <-ep.buffer)
			}
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		ep.deliveries.Add(1)
		go func(subscriber EventSubscriber) {
			defer ep.deliveries.Done()
			subscriber(event)
		}(entry.subscriber)
	}
}

// Shutdown drains buffered events and waits until every subscriber call
// has returned, or until ctx is done.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		ep.deliveries.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// LogEvents returns a subscriber that writes each event to logger. Failed
// writes log at error and reads that hit a backend error at warn. Routine
// changes log at debug.
func LogEvents(logger *Logger) EventSubscriber {
	return func(event Event) {
		l := logger.WithFields(event.Data).
			WithField("event", event.Type).
			WithField("event_id", event.ID).
			WithKey(event.Key)
		if event.Table != "" {
			l = l.WithTable(event.Table)
		}

		switch event.Level {
		case EventLevelError:
			l.Error(event.Message)
		case EventLevelWarning:
			l.Warn(event.Message)
		default:
			l.Debug(event.Message)
		}
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByKey creates a filter that only allows events for a specific logical key.
func FilterByKey(key string) EventFilter {
	return func(event Event) bool {
		return event.Key == key
	}
}
