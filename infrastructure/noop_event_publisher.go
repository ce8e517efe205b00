package infrastructure

import (
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
)

// NoopEventPublisher drops every event. Used for admin commands and tests
// where nothing consumes events.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish discards the event
func (p *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}

var _ interfaces.EventPublisher = (*NoopEventPublisher)(nil)
