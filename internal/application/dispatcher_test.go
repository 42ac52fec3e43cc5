package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
)

type loopFixture struct {
	source    *mockSource
	driver    *mockDriver
	registry  *application.ActuatorRegistry
	speaker   *mockSpeaker
	publisher *mockPublisher
	loop      *application.DispatchLoop
}

func newLoopFixture(t *testing.T, source *mockSource, chat application.ChatService, cfg application.DispatchConfig) *loopFixture {
	t.Helper()
	logger := discardLogger()

	f := &loopFixture{
		source:    source,
		driver:    &mockDriver{},
		speaker:   &mockSpeaker{},
		publisher: &mockPublisher{},
	}
	f.registry = newTestRegistry(t, f.driver)

	classifier := newClassifier(chat, time.Second, true)
	feedback := application.NewFeedback(logger, f.speaker)

	f.loop = application.NewDispatchLoop(source, &mockRecognizer{}, classifier, f.registry, feedback, f.publisher, cfg, logger)
	return f
}

func runLoop(t *testing.T, loop *application.DispatchLoop, ctx context.Context) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch loop did not stop")
		return nil
	}
}

func TestDispatch_LightOnWhenModelUnreachable(t *testing.T) {
	refused := chatFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", fmt.Errorf("dial tcp 127.0.0.1:11434: connection refused: %w", domain.ErrServiceUnavailable)
	})

	f := newLoopFixture(t, &mockSource{frames: frames("把 灯 打开")}, refused, application.DispatchConfig{Keywords: relevance})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	decisions := f.publisher.ofType(domain.EventDecision)
	if len(decisions) != 1 {
		t.Fatalf("decision events: got %d, want 1", len(decisions))
	}
	applied := decisions[0].Applied
	if applied == nil || applied.State.Device != "light" || !applied.State.Level {
		t.Errorf("applied: got %+v, want light on", applied)
	}

	spoken := f.speaker.texts()
	if len(spoken) != 1 || spoken[0] != "好的，灯已开启 (兜底)" {
		t.Errorf("spoken: got %v", spoken)
	}

	// on, then off again at shutdown
	writes := f.driver.lines["light"].writes
	if len(writes) != 2 || !writes[0] || writes[1] {
		t.Errorf("light writes: got %v, want [true false]", writes)
	}
}

func TestDispatch_GreetingSpokenWithoutStateChange(t *testing.T) {
	chat := replyWith(`{"device":null,"action":null,"reply":"你好呀！"}`)
	f := newLoopFixture(t, &mockSource{frames: frames("你好")}, chat, application.DispatchConfig{Keywords: relevance})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	spoken := f.speaker.texts()
	if len(spoken) != 1 || spoken[0] != "你好呀！" {
		t.Errorf("spoken: got %v, want [你好呀！]", spoken)
	}
	for name, line := range f.driver.lines {
		if line.writeCount() != 0 {
			t.Errorf("%s written: %v", name, line.writes)
		}
	}
}

func TestDispatch_ProcessesInOrder(t *testing.T) {
	echo := chatFunc(func(_ context.Context, _, user string) (string, error) {
		return fmt.Sprintf(`{"device":null,"action":null,"reply":%q}`, user), nil
	})

	f := newLoopFixture(t, &mockSource{frames: frames("一", "二", "三", "四")}, echo, application.DispatchConfig{QueueSize: 8})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{"一", "二", "三", "四"}
	got := f.speaker.texts()
	if len(got) != len(want) {
		t.Fatalf("spoken: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("spoken[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatch_StartupPhraseAndStates(t *testing.T) {
	f := newLoopFixture(t, &mockSource{}, replyWith("ok"), application.DispatchConfig{StartupPhrase: "系统启动完毕"})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if spoken := f.speaker.texts(); len(spoken) != 1 || spoken[0] != "系统启动完毕" {
		t.Errorf("spoken: got %v", spoken)
	}
	if f.loop.State() != application.StateIdle {
		t.Errorf("final state: got %s, want idle", f.loop.State())
	}

	var states []string
	for _, e := range f.publisher.ofType(domain.EventState) {
		states = append(states, e.State)
	}
	want := []string{"speaking", "listening", "idle"}
	if fmt.Sprint(states) != fmt.Sprint(want) {
		t.Errorf("states: got %v, want %v", states, want)
	}
}

func TestDispatch_AudioFailureStopsAndResets(t *testing.T) {
	source := &mockSource{
		frames: frames("x"),
		errs:   []error{errors.New("input device lost")},
	}
	f := newLoopFixture(t, source, replyWith("ok"), application.DispatchConfig{})
	f.registry.Apply(context.Background(), "fan", "on")

	err := runLoop(t, f.loop, context.Background())

	var streamErr *domain.AudioStreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("error: got %v, want AudioStreamError", err)
	}
	if !source.wasStopped() {
		t.Error("audio source not stopped")
	}
	if s, _ := f.registry.State("fan"); s.Level {
		t.Error("fan should be reset off")
	}
}

func TestDispatch_ShutdownOnCancel(t *testing.T) {
	source := &mockSource{block: true}
	f := newLoopFixture(t, source, replyWith("ok"), application.DispatchConfig{})
	f.registry.Apply(context.Background(), "light", "on")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := runLoop(t, f.loop, ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
	if !source.wasStopped() {
		t.Error("audio source not stopped")
	}
	if s, _ := f.registry.State("light"); s.Level {
		t.Error("light should be reset off")
	}
}

// slowStopSource blocks in ReadFrame until ctx is done, then takes a little
// longer to return, as a hardware read finishing its current frame.
type slowStopSource struct {
	mockSource
	reading         atomic.Int32
	stopWhileActive atomic.Bool
}

func (s *slowStopSource) ReadFrame(ctx context.Context) ([]byte, error) {
	s.reading.Add(1)
	defer s.reading.Add(-1)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	return nil, ctx.Err()
}

func (s *slowStopSource) Stop() error {
	if s.reading.Load() > 0 {
		s.stopWhileActive.Store(true)
	}
	return s.mockSource.Stop()
}

func TestDispatch_StopWaitsForCapture(t *testing.T) {
	source := &slowStopSource{}
	logger := discardLogger()
	registry := newTestRegistry(t, &mockDriver{})
	loop := application.NewDispatchLoop(source, &mockRecognizer{}, newClassifier(replyWith("ok"), time.Second, true),
		registry, application.NewFeedback(logger), nil, application.DispatchConfig{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	if err := runLoop(t, loop, ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
	if !source.wasStopped() {
		t.Error("audio source not stopped")
	}
	if source.stopWhileActive.Load() {
		t.Error("Stop called while ReadFrame was still running")
	}
}

func TestDispatch_AppliedWithoutReplyIsConfirmed(t *testing.T) {
	chat := chatFunc(func(_ context.Context, _, _ string) (string, error) {
		return `{"device":"light","action":"on"}`, nil
	})
	f := newLoopFixture(t, &mockSource{frames: frames("开灯")}, chat, application.DispatchConfig{})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if spoken := f.speaker.texts(); len(spoken) != 1 || spoken[0] != "好的" {
		t.Errorf("spoken: got %v, want [好的]", spoken)
	}
	decisions := f.publisher.ofType(domain.EventDecision)
	if len(decisions) != 1 || decisions[0].Decision.Reply != "好的" {
		t.Errorf("decision events: got %+v", decisions)
	}
}

func TestDispatch_MalformedReplyIsNotFatal(t *testing.T) {
	f := newLoopFixture(t, &mockSource{frames: frames("关风扇", "你好")}, chatFunc(func(_ context.Context, _, user string) (string, error) {
		if user == "关风扇" {
			return "I think {fan: off}", nil
		}
		return `{"device":null,"action":null,"reply":"在呢"}`, nil
	}), application.DispatchConfig{})

	if err := runLoop(t, f.loop, context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(f.publisher.ofType(domain.EventError)) != 1 {
		t.Error("expected one error event")
	}
	if spoken := f.speaker.texts(); len(spoken) != 1 || spoken[0] != "在呢" {
		t.Errorf("spoken: got %v", spoken)
	}
}

func TestState_String(t *testing.T) {
	if application.StateClassifying.String() != "classifying" {
		t.Errorf("got %s", application.StateClassifying)
	}
	if application.State(42).String() != "state(42)" {
		t.Errorf("got %s", application.State(42))
	}
}
