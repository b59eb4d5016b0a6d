package events

import "context"

// NoOpPublisher drops every event. Used when EVENTS_PROVIDER=none.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a publisher that does nothing.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (NoOpPublisher) Publish(context.Context, AnswerEvent) error { return nil }

func (NoOpPublisher) Close() error { return nil }
