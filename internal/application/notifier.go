package application

import "voice-butler/internal/domain"

type EventPublisher interface {
	Publish(event domain.Event)
}

type NoopPublisher struct{}

func (n *NoopPublisher) Publish(_ domain.Event) {}
