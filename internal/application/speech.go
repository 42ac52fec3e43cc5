package application

import "context"

// Segment is one recognition result. Partial segments are informational only.
type Segment struct {
	Text    string
	Partial bool
}

type Recognizer interface {
	AcceptFrame(frame []byte) (Segment, error)
	// Flush finalizes whatever audio is still buffered.
	Flush() (Segment, error)
	Close() error
}

type Speaker interface {
	Name() string
	Speak(ctx context.Context, text string) error
}
