package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"voice-butler/internal/domain"
)

// ChatTransportError wraps a failed chat request with domain.ErrServiceTimeout
// or domain.ErrServiceUnavailable.
func ChatTransportError(provider string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrServiceTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrServiceUnavailable, err)
}

// ChatStatusError reports a non-2xx chat response.
func ChatStatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return fmt.Errorf("%s API error %d: %s: %w", provider, status, msg, domain.ErrServiceUnavailable)
}
