package application

import (
	"context"
	"log/slog"
	"strings"
)

// Feedback speaks replies through every configured speaker. It never fails:
// the reply is always logged and speaker errors are only reported.
type Feedback struct {
	speakers []Speaker
	logger   *slog.Logger
}

func NewFeedback(logger *slog.Logger, speakers ...Speaker) *Feedback {
	return &Feedback{speakers: speakers, logger: logger}
}

func (f *Feedback) Speak(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	f.logger.Info("reply", "text", text)

	for _, s := range f.speakers {
		f.speakOne(ctx, s, text)
	}
}

func (f *Feedback) speakOne(ctx context.Context, s Speaker, text string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("speaker panicked", "speaker", s.Name(), "panic", r)
		}
	}()

	if err := s.Speak(ctx, text); err != nil {
		f.logger.Warn("speaking reply", "speaker", s.Name(), "error", err)
	}
}
