package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Espeak speaks through the espeak / espeak-ng command line tool.
type Espeak struct {
	binary string
	voice  string
	rate   int
}

func NewEspeak(binary, voice string, rate int) *Espeak {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &Espeak{binary: binary, voice: voice, rate: rate}
}

func (e *Espeak) Name() string {
	return "espeak"
}

// Available reports whether the binary can be found on PATH.
func (e *Espeak) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Speak blocks until playback finishes.
func (e *Espeak) Speak(ctx context.Context, text string) error {
	args := make([]string, 0, 6)
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	if e.rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}
	args = append(args, "--", text)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", e.binary, err, msg)
		}
		return fmt.Errorf("%s: %w", e.binary, err)
	}
	return nil
}
