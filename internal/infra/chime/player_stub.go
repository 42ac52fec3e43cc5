//go:build !speaker

package chime

import (
	"context"
	"fmt"
)

// Player stub when the audio output backend is not compiled in
type Player struct{}

func NewPlayer(_ string) (*Player, error) {
	return nil, fmt.Errorf("chime playback not available: rebuild with -tags speaker")
}

func (p *Player) Name() string {
	return "chime"
}

func (p *Player) Speak(_ context.Context, _ string) error {
	return nil
}
