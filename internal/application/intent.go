package application

import (
	"context"

	"voice-butler/internal/domain"
)

// ChatService sends one system+user exchange to a language model and returns
// the raw assistant text.
type ChatService interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Decision, error)
}
