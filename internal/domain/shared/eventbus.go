package shared

import "context"

// EventPublisher delivers domain events raised by the ledger. Publishing
// happens after the owning transaction commits and is best effort; a
// failed delivery never unwinds a stock mutation.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler reacts to published events, e.g. raising a reorder alert
// when stock drops below its threshold. EventTypes narrows delivery; an
// empty slice subscribes the handler to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventSubscriber manages handler registrations
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is both ends of the event pipeline
type EventBus interface {
	EventPublisher
	EventSubscriber
}
