package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ReplaySource plays recordings from a file or directory as if they came
// from a microphone. Each recording is followed by a second of silence so
// the recognizer finalizes it. After the last one ReadFrame returns an
// empty frame.
type ReplaySource struct {
	path       string
	frameBytes int
	realtime   bool
	logger     *slog.Logger

	mu      sync.Mutex
	pcm     []byte
	offset  int
	started bool
}

func NewReplaySource(path string, frameBytes int, realtime bool, logger *slog.Logger) *ReplaySource {
	return &ReplaySource{
		path:       path,
		frameBytes: frameBytes,
		realtime:   realtime,
		logger:     logger,
	}
}

func (r *ReplaySource) Name() string {
	return "replay"
}

func (r *ReplaySource) Start(_ context.Context) error {
	files, err := r.files()
	if err != nil {
		return err
	}

	silence := make([]byte, SampleRate*2)
	var pcm []byte
	for _, file := range files {
		samples, err := DecodeFile(file)
		if err != nil {
			r.logger.Warn("skipping recording", "file", file, "error", err)
			continue
		}
		pcm = append(pcm, Int16ToBytes(samples)...)
		pcm = append(pcm, silence...)
		r.logger.Debug("queued recording", "file", file, "seconds", float64(len(samples))/SampleRate)
	}

	r.mu.Lock()
	r.pcm = pcm
	r.offset = 0
	r.started = true
	r.mu.Unlock()

	r.logger.Info("replay source started", "path", r.path, "files", len(files))
	return nil
}

func (r *ReplaySource) files() ([]string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, fmt.Errorf("opening replay path: %w", err)
	}
	if !info.IsDir() {
		return []string{r.path}, nil
	}

	entries, err := os.ReadDir(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading replay dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".wav", ".mp3", ".ogg", ".oga", ".opus":
			files = append(files, filepath.Join(r.path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *ReplaySource) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil, fmt.Errorf("replay source not started")
	}
	if r.offset >= len(r.pcm) {
		r.mu.Unlock()
		return []byte{}, nil
	}
	frame := make([]byte, r.frameBytes)
	copy(frame, r.pcm[r.offset:])
	r.offset += r.frameBytes
	r.mu.Unlock()

	if r.realtime {
		wait := time.Duration(len(frame)/2) * time.Second / SampleRate
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return frame, nil
}

func (r *ReplaySource) Stop() error {
	r.mu.Lock()
	r.started = false
	r.pcm = nil
	r.mu.Unlock()
	return nil
}
