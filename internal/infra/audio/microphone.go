//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-butler/internal/domain"
)

type MicrophoneSource struct {
	stream       *portaudio.Stream
	sampleRate   int
	frameSamples int
	logger       *slog.Logger

	mu     sync.Mutex
	buffer []int16
}

func NewMicrophoneSource(sampleRate, frameSamples int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate:   sampleRate,
		frameSamples: frameSamples,
		logger:       logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "portaudio"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buffer = make([]int16, m.frameSamples)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameSamples, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "frameSamples", m.frameSamples)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	stream.Stop()
	stream.Close()
	portaudio.Terminate()
	return nil
}

// ReadFrame blocks until the stream fills one frame.
func (m *MicrophoneSource) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream == nil {
		return nil, fmt.Errorf("microphone not started")
	}

	if err := stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("portaudio: %w", domain.ErrAudioOverflow)
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	return Int16ToBytes(m.buffer), nil
}
