package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voice-butler/internal/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	misunderstoodMessage = "AI 没听懂，请再说具体一点"
)

// ControlResult is the reply of a text command issued outside the audio path.
type ControlResult struct {
	Status       string           `json:"status"`
	UserInput    string           `json:"user_input"`
	ParsedAction *domain.Decision `json:"parsed_action,omitempty"`
	Applied      *domain.Applied  `json:"applied,omitempty"`
	Message      string           `json:"message"`
	RawResponse  string           `json:"raw_response,omitempty"`
}

// Controller classifies and applies a text command in one step. It is shared
// by the HTTP admin endpoint and the MCP tools.
type Controller struct {
	classifier Classifier
	registry   *ActuatorRegistry
	events     EventPublisher
	logger     *slog.Logger
}

func NewController(classifier Classifier, registry *ActuatorRegistry, events EventPublisher, logger *slog.Logger) *Controller {
	if events == nil {
		events = &NoopPublisher{}
	}
	return &Controller{
		classifier: classifier,
		registry:   registry,
		events:     events,
		logger:     logger,
	}
}

// Control returns an error only for internal faults. An unparseable model
// reply is reported as a result with StatusError.
func (c *Controller) Control(ctx context.Context, command string) (ControlResult, error) {
	command = strings.TrimSpace(command)
	result := ControlResult{UserInput: command}

	decision, err := c.classifier.Classify(ctx, command)
	if err != nil {
		var malformed *domain.MalformedResponseError
		if errors.As(err, &malformed) {
			result.Status = StatusError
			result.Message = misunderstoodMessage
			result.RawResponse = malformed.Raw
			return result, nil
		}
		return ControlResult{}, fmt.Errorf("classifying command: %w", err)
	}

	result.Status = StatusSuccess
	result.ParsedAction = &decision

	if !decision.HasDevice() {
		result.Message = decision.Reply
		c.publish(command, decision, nil)
		return result, nil
	}

	applied, err := c.registry.Apply(ctx, decision.Device, decision.Action)
	if err != nil {
		return ControlResult{}, fmt.Errorf("applying %s %s: %w", decision.Device, decision.Action, err)
	}

	result.Applied = &applied
	result.Message = controlMessage(decision, applied)
	c.publish(command, decision, &applied)

	c.logger.Info("control command handled",
		"command", command,
		"device", decision.Device,
		"action", decision.Action,
		"noop", applied.NoOp,
	)

	return result, nil
}

// Devices returns the current actuator states.
func (c *Controller) Devices() []domain.ActuatorState {
	return c.registry.Snapshot()
}

func (c *Controller) publish(command string, d domain.Decision, applied *domain.Applied) {
	c.events.Publish(domain.Event{
		Type:     domain.EventDecision,
		Time:     time.Now(),
		Text:     command,
		Decision: &d,
		Applied:  applied,
	})
}

func controlMessage(d domain.Decision, applied domain.Applied) string {
	switch {
	case applied.NoOp:
		return fmt.Sprintf("未知设备：%s", d.Device)
	case d.Device == domain.DeviceLight && d.Action == domain.ActionOn:
		return "执行成功：已为您开启客厅主灯 💡"
	case d.Device == domain.DeviceFan && d.Action == domain.ActionOff:
		return "执行成功：风扇已停止运转 💨"
	default:
		return fmt.Sprintf("指令已发送：设备 %s -> %s", d.Device, d.Action)
	}
}
