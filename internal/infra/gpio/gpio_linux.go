//go:build linux

package gpio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
)

// Driver requests output lines from a GPIO character device.
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
	offset, err := parseOffset(spec.Address)
	if err != nil {
		return nil, err
	}

	line, err := gpiocdev.RequestLine(d.chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%s line %d: %w: %w", d.chip, offset, domain.ErrHardwareUnavailable, err)
		}
		return nil, fmt.Errorf("requesting %s line %d: %w", d.chip, offset, err)
	}

	return &outputLine{line: line}, nil
}

type outputLine struct {
	mu   sync.Mutex
	line *gpiocdev.Line
}

func (l *outputLine) Set(_ context.Context, level bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := 0
	if level {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *outputLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// release low so nothing stays energized
	l.line.SetValue(0)
	return l.line.Close()
}
