package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceTimeout means the chat service did not answer within the bound.
	ErrServiceTimeout = errors.New("chat service timed out")
	// ErrServiceUnavailable covers connection failures, non-2xx responses and
	// unreadable envelopes from the chat service.
	ErrServiceUnavailable = errors.New("chat service unavailable")

	ErrHardwareUnavailable = errors.New("actuator hardware unavailable")
	ErrAudioOverflow       = errors.New("audio input overflow")
	ErrUnknownDevice       = errors.New("unknown device")
)

// MalformedResponseError is returned when the model reply contains a JSON-like
// object that cannot be decoded into a decision.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// HardwareError reports a failed write to one actuator line.
type HardwareError struct {
	Device string
	Err    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("actuator %s: %v", e.Device, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// AudioStreamError is fatal for the dispatch loop.
type AudioStreamError struct {
	Err error
}

func (e *AudioStreamError) Error() string {
	return fmt.Sprintf("audio stream: %v", e.Err)
}

func (e *AudioStreamError) Unwrap() error { return e.Err }
