package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSource replays frames; a nil entry in errs at the same index means no error.
type mockSource struct {
	mu      sync.Mutex
	frames  [][]byte
	errs    []error
	index   int
	started bool
	stopped bool
	// block keeps ReadFrame waiting on ctx after the frames run out
	block bool
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *mockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockSource) ReadFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	if m.index >= len(m.frames) {
		block := m.block
		m.mu.Unlock()
		if block {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []byte{}, nil
	}
	i := m.index
	m.index++
	m.mu.Unlock()

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return m.frames[i], nil
}

func (m *mockSource) wasStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// mockRecognizer treats every frame as a final segment holding the frame text.
type mockRecognizer struct {
	flushText string
	failOn    string
}

func (m *mockRecognizer) AcceptFrame(frame []byte) (application.Segment, error) {
	text := string(frame)
	if text == m.failOn {
		return application.Segment{}, errors.New("decoder error")
	}
	if len(text) > 0 && text[0] == '~' {
		return application.Segment{Text: text[1:], Partial: true}, nil
	}
	return application.Segment{Text: text}, nil
}

func (m *mockRecognizer) Flush() (application.Segment, error) {
	return application.Segment{Text: m.flushText}, nil
}

func (m *mockRecognizer) Close() error { return nil }

type chatFunc func(ctx context.Context, system, user string) (string, error)

func (f chatFunc) Chat(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

type mockLine struct {
	mu        sync.Mutex
	writes    []bool
	setpoints []string
	err       error
	closed    bool
}

func (m *mockLine) Set(_ context.Context, level bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, level)
	return nil
}

func (m *mockLine) SetSetpoint(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setpoints = append(m.setpoints, value)
	return nil
}

func (m *mockLine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockLine) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

type mockDriver struct {
	lines   map[string]*mockLine
	openErr error
}

func (m *mockDriver) Name() string { return "mock" }

func (m *mockDriver) Open(_ context.Context, spec domain.DeviceSpec) (application.Line, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	line := &mockLine{}
	if m.lines == nil {
		m.lines = make(map[string]*mockLine)
	}
	m.lines[spec.Name] = line
	return line, nil
}

type mockSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
	panics bool
}

func (m *mockSpeaker) Name() string { return "mock" }

func (m *mockSpeaker) Speak(_ context.Context, text string) error {
	if m.panics {
		panic("audio device vanished")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	return m.err
}

func (m *mockSpeaker) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockPublisher) ofType(t domain.EventType) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func defaultRules() []domain.ClassificationRule {
	return []domain.ClassificationRule{
		{
			Device:      domain.DeviceLight,
			Keywords:    []string{"灯", "light"},
			OnKeywords:  []string{"开", "亮", "open", "on"},
			OffKeywords: []string{"关", "灭", "close", "off"},
			OnReply:     "好的，灯已开启 (兜底)",
			OffReply:    "好的，灯已关闭 (兜底)",
		},
		{
			Device:      domain.DeviceFan,
			Keywords:    []string{"风扇", "fan"},
			OnKeywords:  []string{"开", "转", "open", "on"},
			OffKeywords: []string{"关", "停", "close", "off"},
			OnReply:     "风扇启动 (兜底)",
			OffReply:    "风扇停止 (兜底)",
		},
	}
}

func newTestRegistry(t testing.TB, driver application.LineDriver) *application.ActuatorRegistry {
	t.Helper()
	specs := []domain.DeviceSpec{
		{Name: "light", Kind: domain.KindBinary, Driver: "mock", Address: "17"},
		{Name: "fan", Kind: domain.KindBinary, Driver: "mock", Address: "27"},
		{Name: "ac", Kind: domain.KindClimate, Driver: "mock", Address: "climate.living"},
	}
	reg, err := application.NewRegistry(context.Background(), specs, map[string]application.LineDriver{"mock": driver}, discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	return reg
}
