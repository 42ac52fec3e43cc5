package tts_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"voice-butler/internal/infra/tts"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "espeak")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}
	return path
}

func TestEspeak_PassesVoiceRateAndText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	bin := fakeBinary(t, `printf '%s\n' "$@" > `+out+"\n")

	e := tts.NewEspeak(bin, "zh", 165)
	if err := e.Speak(context.Background(), "系统启动完毕"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading args: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"-v", "zh", "-s", "165", "--", "系统启动完毕"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args: got %v, want %v", got, want)
	}
}

func TestEspeak_FailureIncludesStderr(t *testing.T) {
	bin := fakeBinary(t, "echo 'no audio device' >&2\nexit 1\n")

	err := tts.NewEspeak(bin, "zh", 165).Speak(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("error: got %v", err)
	}
}

func TestEspeak_MissingBinary(t *testing.T) {
	e := tts.NewEspeak(filepath.Join(t.TempDir(), "nope"), "zh", 165)
	if e.Available() {
		t.Error("missing binary reported available")
	}
	if err := e.Speak(context.Background(), "hi"); err == nil {
		t.Error("expected error")
	}
}
