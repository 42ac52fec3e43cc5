//go:build !opus

package audio

import (
	"fmt"
	"io"
)

func decodeOpus(_ io.ReadSeeker) ([]float32, error) {
	return nil, fmt.Errorf("opus: %w (rebuild with -tags opus)", errUnsupportedFormat)
}
