package chime

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// SampleRate is the playback rate for synthesized and loaded chimes.
const SampleRate = beep.SampleRate(44100)

// Tone is a sine at freq with a short linear fade at both ends.
func Tone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := sr.N(d)
	fade := sr.N(5 * time.Millisecond)
	pos := 0

	return beep.Take(total, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			gain := 0.3
			if pos < fade {
				gain *= float64(pos) / float64(fade)
			} else if rem := total - pos; rem < fade {
				gain *= float64(rem) / float64(fade)
			}
			v := gain * math.Sin(2*math.Pi*freq*float64(pos)/float64(sr))
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	}))
}

// Ding is the two-note acknowledgement played before a reply.
func Ding(sr beep.SampleRate) beep.Streamer {
	return beep.Seq(
		Tone(sr, 880, 120*time.Millisecond),
		beep.Silence(sr.N(40*time.Millisecond)),
		Tone(sr, 1320, 160*time.Millisecond),
	)
}

// Load decodes an MP3 or WAV chime into memory, resampled to sr.
func Load(path string, sr beep.SampleRate) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chime: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("chime %s: unsupported format", path)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding chime: %w", err)
	}
	defer streamer.Close()

	out := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(out)
	buf.Append(beep.Resample(4, format.SampleRate, sr, streamer))
	return buf, nil
}
