//go:build !linux

package gpio

import (
	"context"
	"fmt"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
)

// Driver stub for platforms without the GPIO character device.
type Driver struct {
	chip string
}

func NewDriver(chip string) *Driver {
	return &Driver{chip: chip}
}

func (d *Driver) Name() string {
	return "gpio"
}

func (d *Driver) Open(_ context.Context, spec domain.DeviceSpec) (application.Line, error) {
	if _, err := parseOffset(spec.Address); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("gpio on this platform: %w", domain.ErrHardwareUnavailable)
}
