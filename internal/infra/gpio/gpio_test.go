package gpio

import (
	"context"
	"errors"
	"testing"

	"voice-butler/internal/domain"
)

func TestParseOffset(t *testing.T) {
	for in, want := range map[string]int{"17": 17, " 27 ": 27, "GPIO4": 4, "gpio22": 22} {
		got, err := parseOffset(in)
		if err != nil || got != want {
			t.Errorf("%q: got %d, %v; want %d", in, got, err, want)
		}
	}

	for _, bad := range []string{"", "light", "-1"} {
		if _, err := parseOffset(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestOpen_MissingChipIsUnavailable(t *testing.T) {
	d := NewDriver("gpiochip-does-not-exist")

	_, err := d.Open(context.Background(), domain.DeviceSpec{Name: "light", Address: "17"})
	if !errors.Is(err, domain.ErrHardwareUnavailable) {
		t.Errorf("error: got %v, want ErrHardwareUnavailable", err)
	}
}
