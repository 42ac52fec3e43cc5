package domain

import "time"

// ClassificationRule maps keywords in a transcript to a device action when
// the model gives no device. Keywords must all be lowercase or CJK.
type ClassificationRule struct {
	Device      string   `yaml:"device"`
	Keywords    []string `yaml:"keywords"`
	OnKeywords  []string `yaml:"on_keywords"`
	OffKeywords []string `yaml:"off_keywords"`
	OnReply     string   `yaml:"on_reply"`
	OffReply    string   `yaml:"off_reply"`
}

type EventType string

const (
	EventState    EventType = "state"
	EventDecision EventType = "decision"
	EventError    EventType = "error"
)

// Event is published to observers of the dispatch loop and admin surfaces.
type Event struct {
	Type        EventType `json:"type"`
	Time        time.Time `json:"time"`
	State       string    `json:"state,omitempty"`
	UtteranceID string    `json:"utterance_id,omitempty"`
	Text        string    `json:"text,omitempty"`
	Decision    *Decision `json:"decision,omitempty"`
	Applied     *Applied  `json:"applied,omitempty"`
	Error       string    `json:"error,omitempty"`
}
