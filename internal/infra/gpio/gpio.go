package gpio

import (
	"fmt"
	"strconv"
	"strings"
)

const consumer = "voice-butler"

// parseOffset reads a line offset such as "17" or "GPIO17".
func parseOffset(address string) (int, error) {
	a := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(address)), "GPIO")
	offset, err := strconv.Atoi(a)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid gpio line %q", address)
	}
	return offset, nil
}
