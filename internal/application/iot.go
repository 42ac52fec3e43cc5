package application

import (
	"context"

	"voice-butler/internal/domain"
)

// Line is one writable actuator output.
type Line interface {
	Set(ctx context.Context, level bool) error
	Close() error
}

// SetpointLine is implemented by lines that accept a climate setpoint.
type SetpointLine interface {
	Line
	SetSetpoint(ctx context.Context, value string) error
}

// LineDriver opens lines for one actuator backend. Open returns an error
// wrapping domain.ErrHardwareUnavailable when the backend is absent.
type LineDriver interface {
	Name() string
	Open(ctx context.Context, spec domain.DeviceSpec) (Line, error)
}
