package vosk

import (
	"encoding/json"
	"fmt"

	"voice-butler/internal/application"
)

type result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
	Result  []struct {
		Conf float64 `json:"conf"`
		Word string  `json:"word"`
	} `json:"result,omitempty"`
}

// parseFinal decodes a Result or FinalResult payload.
func parseFinal(payload string) (application.Segment, error) {
	var r result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return application.Segment{}, fmt.Errorf("parsing vosk result: %w", err)
	}
	return application.Segment{Text: r.Text}, nil
}

// parsePartial decodes a PartialResult payload.
func parsePartial(payload string) (application.Segment, error) {
	var r result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return application.Segment{}, fmt.Errorf("parsing vosk partial result: %w", err)
	}
	return application.Segment{Text: r.Partial, Partial: true}, nil
}
