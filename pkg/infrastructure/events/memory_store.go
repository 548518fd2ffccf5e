package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultRetention bounds the events kept per stream
const DefaultRetention = 256

type streamLog struct {
	last   int
	events []Event
}

type subscription struct {
	handler EventHandler
	types   map[string]bool
}

// InMemoryEventStore keeps the most recent events of every stream and
// notifies subscribers asynchronously. Wait blocks until all pending
// notifications are handled.
type InMemoryEventStore struct {
	mu          sync.RWMutex
	retention   int
	streams     map[string]*streamLog
	subscribers []subscription
	pending     sync.WaitGroup
	logger      *slog.Logger
}

// NewInMemoryEventStore creates an empty store with DefaultRetention
func NewInMemoryEventStore(logger *slog.Logger) *InMemoryEventStore {
	return NewInMemoryEventStoreWithRetention(DefaultRetention, logger)
}

// NewInMemoryEventStoreWithRetention creates an empty store keeping at most
// retention events per stream. Sequence numbers keep counting after old
// events are discarded.
func NewInMemoryEventStoreWithRetention(retention int, logger *slog.Logger) *InMemoryEventStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventStore{
		retention: retention,
		streams:   make(map[string]*streamLog),
		logger:    logger,
	}
}

func (s *InMemoryEventStore) Publish(event Event) (Event, error) {
	if event.Type == "" || event.Stream == "" {
		return Event{}, fmt.Errorf("event needs a type and a stream (got %q on %q)", event.Type, event.Stream)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	s.mu.Lock()
	log, ok := s.streams[event.Stream]
	if !ok {
		log = &streamLog{}
		s.streams[event.Stream] = log
	}
	log.last++
	event.Sequence = log.last
	log.events = append(log.events, event)
	if excess := len(log.events) - s.retention; excess > 0 {
		log.events = append([]Event(nil), log.events[excess:]...)
	}

	var handlers []EventHandler
	for _, sub := range s.subscribers {
		if sub.types[event.Type] {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.Unlock()

	s.dispatch(event, handlers)
	return event, nil
}

func (s *InMemoryEventStore) History(stream string, afterSequence int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Event{}
	log, ok := s.streams[stream]
	if !ok {
		return out
	}
	for _, e := range log.events {
		if e.Sequence > afterSequence {
			out = append(out, e)
		}
	}
	return out
}

func (s *InMemoryEventStore) Latest(stream string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.streams[stream]
	if !ok || len(log.events) == 0 {
		return Event{}, false
	}
	return log.events[len(log.events)-1], true
}

func (s *InMemoryEventStore) Subscribe(handler EventHandler, eventTypes ...string) {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, subscription{handler: handler, types: types})
	s.mu.Unlock()
}

// Wait blocks until every notification dispatched so far has been handled
func (s *InMemoryEventStore) Wait() {
	s.pending.Wait()
}

func (s *InMemoryEventStore) dispatch(event Event, handlers []EventHandler) {
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type) {
			continue
		}
		s.pending.Add(1)
		go func(h EventHandler) {
			defer s.pending.Done()
			if err := h.Handle(event); err != nil {
				s.logger.Error("event handler failed",
					"event", event.Type,
					"stream", event.Stream,
					"sequence", event.Sequence,
					"error", err,
				)
			}
		}(handler)
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)
