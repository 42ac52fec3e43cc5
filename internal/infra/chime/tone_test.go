package chime_test

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"

	"voice-butler/internal/infra/chime"
)

func drain(s beep.Streamer) (int, float64) {
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok || n == 0 {
			return total, peak
		}
	}
}

func TestTone_LengthAndLevel(t *testing.T) {
	sr := beep.SampleRate(8000)
	n, peak := drain(chime.Tone(sr, 440, 100*time.Millisecond))

	if n != 800 {
		t.Errorf("samples: got %d, want 800", n)
	}
	if peak <= 0.1 || peak > 0.3 {
		t.Errorf("peak: got %f", peak)
	}
}

func TestDing_Length(t *testing.T) {
	sr := beep.SampleRate(8000)
	n, _ := drain(chime.Ding(sr))

	// 120 ms + 40 ms + 160 ms
	if n != 2560 {
		t.Errorf("samples: got %d, want 2560", n)
	}
}

func TestLoad_Unsupported(t *testing.T) {
	if _, err := chime.Load(filepath.Join(t.TempDir(), "ding.flac"), chime.SampleRate); err == nil {
		t.Error("expected error")
	}
}
