//go:build !malgo

package audio

import (
	"context"
	"fmt"
	"log/slog"
)

// MalgoSource stub when miniaudio is not compiled in
type MalgoSource struct{}

func NewMalgoSource(_, _ int, _ *slog.Logger) *MalgoSource {
	return &MalgoSource{}
}

func (m *MalgoSource) Name() string {
	return "malgo"
}

func (m *MalgoSource) Start(_ context.Context) error {
	return fmt.Errorf("malgo source not available: rebuild with -tags malgo")
}

func (m *MalgoSource) Stop() error {
	return nil
}

func (m *MalgoSource) ReadFrame(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("malgo source not available")
}
