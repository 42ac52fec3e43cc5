package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"voice-butler/internal/domain"
)

type actuator struct {
	mu    sync.Mutex
	line  Line
	state domain.ActuatorState
}

// ActuatorRegistry owns the logical state of every configured device. The
// device set is fixed at construction; each device has its own lock.
type ActuatorRegistry struct {
	devices map[string]*actuator
	order   []string
	logger  *slog.Logger
}

// NewRegistry opens a line for every spec through the driver named by
// spec.Driver. Devices whose hardware is unavailable, or whose driver is
// "none", run in simulation mode.
func NewRegistry(ctx context.Context, specs []domain.DeviceSpec, drivers map[string]LineDriver, logger *slog.Logger) (*ActuatorRegistry, error) {
	r := &ActuatorRegistry{
		devices: make(map[string]*actuator, len(specs)),
		logger:  logger,
	}

	for _, spec := range specs {
		name := strings.ToLower(strings.TrimSpace(spec.Name))
		if name == "" {
			r.Close()
			return nil, fmt.Errorf("device with empty name")
		}
		if _, dup := r.devices[name]; dup {
			r.Close()
			return nil, fmt.Errorf("duplicate device: %s", name)
		}

		kind := spec.Kind
		if kind == "" {
			kind = domain.KindBinary
		}

		a := &actuator{
			state: domain.ActuatorState{
				Device:    name,
				Kind:      kind,
				Line:      spec.Address,
				Simulated: true,
			},
		}

		if spec.Driver != "" && spec.Driver != "none" {
			driver, ok := drivers[spec.Driver]
			if !ok {
				r.Close()
				return nil, fmt.Errorf("device %s: unknown driver %q", name, spec.Driver)
			}

			line, err := driver.Open(ctx, spec)
			switch {
			case err == nil:
				a.line = line
				a.state.Simulated = false
			case errors.Is(err, domain.ErrHardwareUnavailable):
				logger.Warn("actuator hardware unavailable, simulating",
					"device", name,
					"driver", spec.Driver,
					"error", err,
				)
			default:
				r.Close()
				return nil, fmt.Errorf("opening %s line for %s: %w", spec.Driver, name, err)
			}
		}

		r.devices[name] = a
		r.order = append(r.order, name)
	}

	return r, nil
}

// Apply drives device to action. Unknown devices are a no-op. The hardware
// line is written only when the level actually changes, and the logical
// state is updated only after a successful write.
func (r *ActuatorRegistry) Apply(ctx context.Context, device, action string) (domain.Applied, error) {
	name := strings.ToLower(strings.TrimSpace(device))
	a, ok := r.devices[name]
	if !ok {
		r.logger.Info("ignoring action for unknown device", "device", device, "action", action)
		return domain.Applied{NoOp: true}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := nextState(a.state, action)
	levelChanged := next.Level != a.state.Level
	setpointChanged := next.Setpoint != a.state.Setpoint

	if a.line != nil {
		if levelChanged {
			if err := a.line.Set(ctx, next.Level); err != nil {
				return domain.Applied{State: a.state}, &domain.HardwareError{Device: name, Err: err}
			}
		}
		if setpointChanged && next.Setpoint != "" {
			if sl, ok := a.line.(SetpointLine); ok {
				if err := sl.SetSetpoint(ctx, next.Setpoint); err != nil {
					// the level write already happened
					a.state.Level = next.Level
					return domain.Applied{State: a.state, Changed: levelChanged}, &domain.HardwareError{Device: name, Err: err}
				}
			}
		}
	}

	a.state = next
	changed := levelChanged || setpointChanged

	r.logger.Info("actuator applied",
		"device", name,
		"action", action,
		"level", next.Level,
		"changed", changed,
		"simulated", next.Simulated,
	)

	return domain.Applied{State: next, Changed: changed}, nil
}

func nextState(cur domain.ActuatorState, action string) domain.ActuatorState {
	next := cur
	action = strings.TrimSpace(action)

	if cur.Kind == domain.KindClimate {
		switch strings.ToLower(action) {
		case domain.ActionOff:
			next.Level = false
			next.Setpoint = ""
		case domain.ActionOn:
			next.Level = true
		default:
			next.Level = true
			next.Setpoint = action
		}
		return next
	}

	next.Level = strings.ToLower(action) == domain.ActionOn
	return next
}

// ResetAll drives every device off. Failures are collected, not short-circuited.
func (r *ActuatorRegistry) ResetAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.order {
		if _, err := r.Apply(ctx, name, domain.ActionOff); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelfTest blinks a device's line and leaves it off. Simulated devices are skipped.
func (r *ActuatorRegistry) SelfTest(ctx context.Context, device string, blinks int, interval time.Duration) error {
	a, ok := r.devices[strings.ToLower(device)]
	if !ok {
		return fmt.Errorf("self test %s: %w", device, domain.ErrUnknownDevice)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.line == nil {
		r.logger.Info("skipping self test in simulation mode", "device", device)
		return nil
	}

	for i := 0; i < blinks; i++ {
		for _, level := range []bool{true, false} {
			if err := a.line.Set(ctx, level); err != nil {
				return &domain.HardwareError{Device: a.state.Device, Err: err}
			}
			select {
			case <-ctx.Done():
				if err := a.line.Set(context.Background(), a.state.Level); err != nil {
					return errors.Join(ctx.Err(), &domain.HardwareError{Device: a.state.Device, Err: err})
				}
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}

	if a.state.Level {
		return a.line.Set(ctx, true)
	}
	return nil
}

func (r *ActuatorRegistry) State(device string) (domain.ActuatorState, bool) {
	a, ok := r.devices[strings.ToLower(strings.TrimSpace(device))]
	if !ok {
		return domain.ActuatorState{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, true
}

// Snapshot returns the state of every device in configuration order.
func (r *ActuatorRegistry) Snapshot() []domain.ActuatorState {
	states := make([]domain.ActuatorState, 0, len(r.order))
	for _, name := range r.order {
		a := r.devices[name]
		a.mu.Lock()
		states = append(states, a.state)
		a.mu.Unlock()
	}
	return states
}

// Simulated reports whether no device is backed by real hardware.
func (r *ActuatorRegistry) Simulated() bool {
	for _, a := range r.devices {
		if a.line != nil {
			return false
		}
	}
	return true
}

func (r *ActuatorRegistry) Close() error {
	var errs []error
	for _, name := range r.order {
		a := r.devices[name]
		a.mu.Lock()
		if a.line != nil {
			if err := a.line.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			}
			a.line = nil
		}
		a.mu.Unlock()
	}
	return errors.Join(errs...)
}
