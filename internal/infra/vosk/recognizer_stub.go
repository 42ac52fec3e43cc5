//go:build !vosk

package vosk

import (
	"fmt"

	"voice-butler/internal/application"
)

// Recognizer stub when the Vosk library is not compiled in
type Recognizer struct{}

func NewRecognizer(modelPath string, _ int) (*Recognizer, error) {
	return nil, fmt.Errorf("vosk recognizer not available (model %s): rebuild with -tags vosk", modelPath)
}

func (r *Recognizer) AcceptFrame(_ []byte) (application.Segment, error) {
	return application.Segment{}, fmt.Errorf("vosk recognizer not available")
}

func (r *Recognizer) Flush() (application.Segment, error) {
	return application.Segment{}, nil
}

func (r *Recognizer) Close() error {
	return nil
}
