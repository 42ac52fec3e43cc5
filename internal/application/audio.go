package application

import "context"

// FrameSource delivers fixed-size 16 kHz mono S16LE frames. ReadFrame returns
// a zero-length frame at end of input and domain.ErrAudioOverflow when the
// device dropped samples.
type FrameSource interface {
	Name() string
	Start(ctx context.Context) error
	ReadFrame(ctx context.Context) ([]byte, error)
	Stop() error
}
