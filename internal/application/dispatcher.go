package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voice-butler/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateListening
	StateClassifying
	StateDispatching
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateClassifying:
		return "classifying"
	case StateDispatching:
		return "dispatching"
	case StateSpeaking:
		return "speaking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// defaultReply confirms an applied action when the model gave no reply.
const defaultReply = "好的"

type DispatchConfig struct {
	Keywords          []string
	QueueSize         int
	MuteWhileSpeaking bool
	MuteTail          time.Duration
	StartupPhrase     string
	ResetTimeout      time.Duration
}

// DispatchLoop runs capture and dispatch: a capture goroutine feeds a
// bounded queue and a single worker classifies, applies and speaks each
// utterance in the order it was heard.
type DispatchLoop struct {
	audio      FrameSource
	transcript *TranscriptStream
	classifier Classifier
	registry   *ActuatorRegistry
	feedback   *Feedback
	events     EventPublisher
	gate       *MuteGate
	queue      *UtteranceQueue
	cfg        DispatchConfig
	logger     *slog.Logger

	mu    sync.RWMutex
	state State
}

func NewDispatchLoop(
	audio FrameSource,
	recognizer Recognizer,
	classifier Classifier,
	registry *ActuatorRegistry,
	feedback *Feedback,
	events EventPublisher,
	cfg DispatchConfig,
	logger *slog.Logger,
) *DispatchLoop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 5 * time.Second
	}
	if events == nil {
		events = &NoopPublisher{}
	}

	var gate *MuteGate
	if cfg.MuteWhileSpeaking {
		gate = NewMuteGate()
	}

	return &DispatchLoop{
		audio:      audio,
		transcript: NewTranscriptStream(audio, recognizer, cfg.Keywords, gate, logger),
		classifier: classifier,
		registry:   registry,
		feedback:   feedback,
		events:     events,
		gate:       gate,
		queue:      NewUtteranceQueue(cfg.QueueSize),
		cfg:        cfg,
		logger:     logger,
	}
}

func (l *DispatchLoop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Run blocks until ctx is cancelled, the audio input ends or the audio
// stream fails. On every exit path the audio source is stopped and all
// actuators are driven off.
func (l *DispatchLoop) Run(ctx context.Context) error {
	l.setState(StateIdle)

	l.logger.Info("starting audio source", "source", l.audio.Name())
	if err := l.audio.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if l.cfg.StartupPhrase != "" {
		l.speak(runCtx, l.cfg.StartupPhrase)
	}

	l.setState(StateListening)
	l.logger.Info("dispatch loop ready, listening")

	captureDone := make(chan error, 1)
	go func() {
		err := l.transcript.Run(runCtx, func(u domain.Utterance) {
			if evicted, dropped := l.queue.Push(u); dropped {
				l.logger.Warn("utterance queue full, dropped oldest", "id", evicted.ID, "text", evicted.Text)
			}
		})
		l.queue.Close()
		captureDone <- err
	}()

	for {
		u, ok := l.queue.Pop(runCtx)
		if !ok {
			break
		}
		l.process(runCtx, u)
	}

	// The source is stopped only after the capture goroutine has left ReadFrame.
	cancel()
	captureErr := <-captureDone
	if err := l.audio.Stop(); err != nil {
		l.logger.Warn("stopping audio", "error", err)
	}

	l.shutdown()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	var streamErr *domain.AudioStreamError
	if errors.As(captureErr, &streamErr) {
		l.publish(domain.Event{Type: domain.EventError, Error: streamErr.Error()})
		return captureErr
	}
	return nil
}

func (l *DispatchLoop) process(ctx context.Context, u domain.Utterance) {
	l.setState(StateClassifying)
	defer l.setState(StateListening)

	decision, err := l.classifier.Classify(ctx, u.Text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var malformed *domain.MalformedResponseError
		if errors.As(err, &malformed) {
			l.logger.Warn("could not understand model reply", "id", u.ID, "raw", malformed.Raw)
		} else {
			l.logger.Error("classifying utterance", "id", u.ID, "error", err)
		}
		l.publish(domain.Event{Type: domain.EventError, UtteranceID: u.ID, Text: u.Text, Error: err.Error()})
		return
	}

	l.setState(StateDispatching)

	var applied *domain.Applied
	if decision.HasDevice() {
		res, err := l.registry.Apply(ctx, decision.Device, decision.Action)
		if err != nil {
			l.logger.Error("applying decision", "id", u.ID, "device", decision.Device, "error", err)
		} else {
			applied = &res
		}
	}

	if applied != nil && decision.Reply == "" {
		decision.Reply = defaultReply
	}

	l.publish(domain.Event{
		Type:        domain.EventDecision,
		UtteranceID: u.ID,
		Text:        u.Text,
		Decision:    &decision,
		Applied:     applied,
	})

	l.speak(ctx, decision.Reply)
}

func (l *DispatchLoop) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	l.setState(StateSpeaking)
	l.gate.Close()
	l.feedback.Speak(ctx, text)
	l.gate.Open(l.cfg.MuteTail)
}

func (l *DispatchLoop) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.ResetTimeout)
	defer cancel()

	if err := l.registry.ResetAll(ctx); err != nil {
		l.logger.Error("resetting actuators", "error", err)
	}
	l.setState(StateIdle)
	l.logger.Info("dispatch loop stopped")
}

func (l *DispatchLoop) setState(s State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()

	if changed {
		l.logger.Debug("state", "state", s.String())
		l.publish(domain.Event{Type: domain.EventState, State: s.String()})
	}
}

func (l *DispatchLoop) publish(e domain.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	l.events.Publish(e)
}
