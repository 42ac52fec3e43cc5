package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

type Source string

const (
	SourceModel       Source = "model"
	SourceFallback    Source = "fallback"
	SourceUnavailable Source = "unavailable"
	SourceText        Source = "text"
)

// Utterance is one finalized, relevance-filtered recognition segment.
type Utterance struct {
	ID        string
	Text      string
	Timestamp time.Time
}

// Decision is the structured result of intent classification. Device and
// Action are either both set or both empty; an empty pair encodes to JSON null.
type Decision struct {
	Device string
	Action string
	Reply  string
	Source Source
}

func (d Decision) HasDevice() bool {
	return d.Device != ""
}

// Normalize lowercases the device and clears a half-filled device/action pair.
func (d *Decision) Normalize() {
	d.Device = strings.ToLower(strings.TrimSpace(d.Device))
	d.Action = strings.TrimSpace(d.Action)
	if lower := strings.ToLower(d.Action); lower == ActionOn || lower == ActionOff {
		d.Action = lower
	}
	if d.Device == "" || d.Action == "" {
		d.Device = ""
		d.Action = ""
	}
}

type wireDecision struct {
	Device *string         `json:"device"`
	Action json.RawMessage `json:"action"`
	Reply  string          `json:"reply"`
}

func (d Decision) MarshalJSON() ([]byte, error) {
	w := struct {
		Device *string `json:"device"`
		Action *string `json:"action"`
		Reply  string  `json:"reply"`
	}{Reply: d.Reply}
	if d.HasDevice() {
		device, action := d.Device, d.Action
		w.Device = &device
		w.Action = &action
	}
	return json.Marshal(w)
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	var w wireDecision
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return d.fromWire(w)
}

// ParseDecisionStrict decodes data as exactly one decision object. Unknown
// fields, wrong value types and trailing content are rejected.
func ParseDecisionStrict(data []byte) (Decision, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Decision{}, fmt.Errorf("decision must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var w wireDecision
	if err := dec.Decode(&w); err != nil {
		return Decision{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Decision{}, fmt.Errorf("trailing data after decision object")
	}

	var d Decision
	if err := d.fromWire(w); err != nil {
		return Decision{}, err
	}
	return d, nil
}

func (d *Decision) fromWire(w wireDecision) error {
	action, err := decodeAction(w.Action)
	if err != nil {
		return err
	}

	*d = Decision{Action: action, Reply: w.Reply, Source: d.Source}
	if w.Device != nil {
		d.Device = *w.Device
	}
	d.Normalize()
	return nil
}

// decodeAction accepts a JSON string, number or null.
func decodeAction(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("action must be a string, number or null, got %s", raw)
	}
}
