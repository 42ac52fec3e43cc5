//go:build speaker

package chime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Player plays a chime on the default output device before each reply.
type Player struct {
	mu    sync.Mutex
	sound *beep.Buffer
}

var initOnce sync.Once
var initErr error

// NewPlayer opens the output device. An empty file selects the built-in ding.
func NewPlayer(file string) (*Player, error) {
	initOnce.Do(func() {
		initErr = speaker.Init(SampleRate, SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return nil, fmt.Errorf("initializing speaker: %w", initErr)
	}

	p := &Player{}
	if file != "" {
		buf, err := Load(file, SampleRate)
		if err != nil {
			return nil, err
		}
		p.sound = buf
	}
	return p, nil
}

func (p *Player) Name() string {
	return "chime"
}

// Speak ignores the text and blocks until the chime has played.
func (p *Player) Speak(ctx context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s beep.Streamer = Ding(SampleRate)
	if p.sound != nil {
		s = p.sound.Streamer(0, p.sound.Len())
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
