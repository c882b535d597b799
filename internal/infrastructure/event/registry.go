package event

import (
	"sync"

	"github.com/retailpos/backend/internal/domain/shared"
)

// subscriberSet tracks which handlers want which event types. Handlers
// registered without any type receive every event, which is how audit
// sinks hook in.
type subscriberSet struct {
	mu        sync.RWMutex
	byType    map[string][]shared.EventHandler
	allEvents []shared.EventHandler
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{
		byType: make(map[string][]shared.EventHandler),
	}
}

func (s *subscriberSet) add(handler shared.EventHandler, eventTypes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(eventTypes) == 0 {
		s.allEvents = append(s.allEvents, handler)
		return
	}
	for _, eventType := range eventTypes {
		s.byType[eventType] = append(s.byType[eventType], handler)
	}
}

func (s *subscriberSet) remove(handler shared.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allEvents = without(s.allEvents, handler)
	for eventType, handlers := range s.byType {
		s.byType[eventType] = without(handlers, handler)
		if len(s.byType[eventType]) == 0 {
			delete(s.byType, eventType)
		}
	}
}

// handlersFor returns the type-specific handlers followed by the
// catch-all ones
func (s *subscriberSet) handlersFor(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typed := s.byType[eventType]
	result := make([]shared.EventHandler, 0, len(typed)+len(s.allEvents))
	result = append(result, typed...)
	result = append(result, s.allEvents...)
	return result
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := handlers[:0:0]
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
