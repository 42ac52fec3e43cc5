//go:build malgo

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"voice-butler/internal/domain"
)

// MalgoSource captures through miniaudio. The device callback assembles
// fixed-size frames and hands them over a bounded channel; when the reader
// falls behind the frame is dropped and the next ReadFrame reports an
// overflow.
type MalgoSource struct {
	sampleRate int
	frameBytes int
	logger     *slog.Logger

	mu         sync.Mutex
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	frames     chan []byte
	pending    []byte
	overflowed bool
}

func NewMalgoSource(sampleRate, frameBytes int, logger *slog.Logger) *MalgoSource {
	return &MalgoSource{
		sampleRate: sampleRate,
		frameBytes: frameBytes,
		logger:     logger,
	}
}

func (m *MalgoSource) Name() string {
	return "malgo"
}

func (m *MalgoSource) Start(_ context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("initializing malgo context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(m.sampleRate)

	m.frames = make(chan []byte, 16)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.onData(input)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("starting capture device: %w", err)
	}

	m.mu.Lock()
	m.ctx = mctx
	m.device = device
	m.mu.Unlock()

	m.logger.Info("malgo capture started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MalgoSource) onData(input []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = append(m.pending, input...)
	for len(m.pending) >= m.frameBytes {
		frame := make([]byte, m.frameBytes)
		copy(frame, m.pending)
		m.pending = m.pending[m.frameBytes:]

		select {
		case m.frames <- frame:
		default:
			m.overflowed = true
		}
	}
}

func (m *MalgoSource) ReadFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	if m.overflowed {
		m.overflowed = false
		m.mu.Unlock()
		return nil, fmt.Errorf("malgo: %w", domain.ErrAudioOverflow)
	}
	frames := m.frames
	m.mu.Unlock()

	if frames == nil {
		return nil, fmt.Errorf("malgo source not started")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-frames:
		if !ok {
			return []byte{}, nil
		}
		return frame, nil
	}
}

func (m *MalgoSource) Stop() error {
	m.mu.Lock()
	device, mctx := m.device, m.ctx
	m.device, m.ctx = nil, nil
	m.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			m.logger.Warn("stopping capture device", "error", err)
		}
		device.Uninit()
	}
	if mctx != nil {
		mctx.Uninit()
		mctx.Free()
	}
	return nil
}
