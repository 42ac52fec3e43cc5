//go:build vosk

package vosk

import (
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"voice-butler/internal/application"
)

// Recognizer wraps a Vosk model and recognizer pair.
type Recognizer struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

func NewRecognizer(modelPath string, sampleRate int) (*Recognizer, error) {
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading vosk model from %s: %w", modelPath, err)
	}
	if model == nil {
		return nil, fmt.Errorf("loading vosk model from %s: model returned nil", modelPath)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("creating vosk recognizer: %w", err)
	}

	return &Recognizer{model: model, recognizer: rec}, nil
}

func (r *Recognizer) AcceptFrame(frame []byte) (application.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer == nil {
		return application.Segment{}, fmt.Errorf("vosk recognizer closed")
	}

	if r.recognizer.AcceptWaveform(frame) > 0 {
		return parseFinal(r.recognizer.Result())
	}
	return parsePartial(r.recognizer.PartialResult())
}

func (r *Recognizer) Flush() (application.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer == nil {
		return application.Segment{}, nil
	}
	return parseFinal(r.recognizer.FinalResult())
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer != nil {
		r.recognizer.Free()
		r.recognizer = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
