package application

import (
	"sync"
	"time"
)

// MuteGate suppresses recognized speech while the assistant is talking and
// for a short tail afterwards. A nil gate is always open.
type MuteGate struct {
	mu       sync.Mutex
	speaking bool
	until    time.Time
	now      func() time.Time
}

func NewMuteGate() *MuteGate {
	return &MuteGate{now: time.Now}
}

// Close mutes input until the next Open.
func (g *MuteGate) Close() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.speaking = true
	g.mu.Unlock()
}

// Open unmutes input once tail has elapsed.
func (g *MuteGate) Open(tail time.Duration) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.speaking = false
	g.until = g.now().Add(tail)
	g.mu.Unlock()
}

func (g *MuteGate) Muted() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking || g.now().Before(g.until)
}
