package audio_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voice-butler/internal/infra/audio"
)

func writeWAV(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func ramp(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = (i % 200) * 100
	}
	return out
}

func TestDecodeFile_WAVMono16k(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	writeWAV(t, path, 16000, 1, ramp(1600))

	samples, err := audio.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile error: %v", err)
	}
	if len(samples) != 1600 {
		t.Errorf("samples: got %d, want 1600", len(samples))
	}
}

func TestDecodeFile_ResamplesAndDownmixes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.wav")
	// 0.1 s of 32 kHz stereo
	writeWAV(t, path, 32000, 2, ramp(3200*2))

	samples, err := audio.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile error: %v", err)
	}
	if len(samples) != 1600 {
		t.Errorf("samples: got %d, want 1600", len(samples))
	}
}

func TestDecodeFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello there"), 0o600)

	if _, err := audio.DecodeFile(path); err == nil {
		t.Error("expected error for text file")
	}
}

func TestReplaySource_FramesThenEnd(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "01.wav"), 16000, 1, ramp(8000))
	writeWAV(t, filepath.Join(dir, "02.wav"), 16000, 1, ramp(8000))
	os.WriteFile(filepath.Join(dir, "readme.md"), []byte("ignored"), 0o600)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := audio.NewReplaySource(dir, 8000, false, logger)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer src.Stop()

	// two recordings of 0.5 s plus 1 s of silence each = 3 s = 12 frames of 4000 samples
	frames := 0
	for {
		frame, err := src.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame error: %v", err)
		}
		if len(frame) == 0 {
			break
		}
		if len(frame) != 8000 {
			t.Fatalf("frame size: got %d, want 8000", len(frame))
		}
		frames++
		if frames > 100 {
			t.Fatal("replay never ended")
		}
	}

	if frames != 12 {
		t.Errorf("frames: got %d, want 12", frames)
	}
}

func TestReplaySource_MissingPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := audio.NewReplaySource(filepath.Join(t.TempDir(), "nope"), 8000, false, logger)

	if err := src.Start(context.Background()); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	out := audio.BytesToInt16(audio.Int16ToBytes(in))
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}
