package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-butler/internal/domain"
)

// TranscriptStream turns audio frames into relevant utterances.
type TranscriptStream struct {
	source     FrameSource
	recognizer Recognizer
	keywords   []string
	gate       *MuteGate
	logger     *slog.Logger
	now        func() time.Time
}

func NewTranscriptStream(source FrameSource, recognizer Recognizer, keywords []string, gate *MuteGate, logger *slog.Logger) *TranscriptStream {
	// transcripts lose their whitespace, so keywords must too
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.Join(strings.Fields(strings.ToLower(kw)), ""); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	return &TranscriptStream{
		source:     source,
		recognizer: recognizer,
		keywords:   normalized,
		gate:       gate,
		logger:     logger,
		now:        time.Now,
	}
}

// Run reads frames until end of input, ctx cancellation or a fatal read
// error. End of input returns nil; read failures other than overflow are
// returned as *domain.AudioStreamError.
func (t *TranscriptStream) Run(ctx context.Context, emit func(domain.Utterance)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := t.source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrAudioOverflow) {
				t.logger.Debug("audio overflow, frame dropped")
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &domain.AudioStreamError{Err: err}
		}

		if len(frame) == 0 {
			seg, err := t.recognizer.Flush()
			if err != nil {
				t.logger.Warn("flushing recognizer", "error", err)
			} else {
				t.handle(seg, emit)
			}
			t.logger.Info("audio input ended", "source", t.source.Name())
			return nil
		}

		seg, err := t.recognizer.AcceptFrame(frame)
		if err != nil {
			t.logger.Warn("recognizing frame", "error", err)
			continue
		}
		t.handle(seg, emit)
	}
}

func (t *TranscriptStream) handle(seg Segment, emit func(domain.Utterance)) {
	if seg.Partial {
		if seg.Text != "" {
			t.logger.Debug("partial", "text", seg.Text)
		}
		return
	}

	text := strings.Join(strings.Fields(seg.Text), "")
	if text == "" {
		return
	}

	if t.gate.Muted() {
		t.logger.Debug("dropping speech heard while speaking", "text", text)
		return
	}

	if !t.relevant(text) {
		t.logger.Debug("ignoring irrelevant speech", "text", text)
		return
	}

	u := domain.Utterance{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: t.now(),
	}
	t.logger.Info("heard", "id", u.ID, "text", u.Text)
	emit(u)
}

func (t *TranscriptStream) relevant(text string) bool {
	if len(t.keywords) == 0 {
		return true
	}
	return containsAny(strings.ToLower(text), t.keywords)
}
