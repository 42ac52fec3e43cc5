package application_test

import (
	"context"
	"errors"
	"testing"

	"voice-butler/internal/application"
	"voice-butler/internal/domain"
)

func newController(t *testing.T, chat application.ChatService, driver *mockDriver) (*application.Controller, *application.ActuatorRegistry) {
	t.Helper()
	reg := newTestRegistry(t, driver)
	c := application.NewController(newClassifier(chat, 0, true), reg, nil, discardLogger())
	return c, reg
}

func TestController_UnparseableReplyLeavesFanUnchanged(t *testing.T) {
	c, reg := newController(t, replyWith("I think {fan: off}"), &mockDriver{})
	reg.Apply(context.Background(), "fan", "on")

	res, err := c.Control(context.Background(), "turn off fan")
	if err != nil {
		t.Fatalf("Control error: %v", err)
	}

	if res.Status != application.StatusError {
		t.Errorf("status: got %q, want error", res.Status)
	}
	if res.RawResponse != "I think {fan: off}" {
		t.Errorf("raw_response: got %q", res.RawResponse)
	}
	if res.Message == "" {
		t.Error("message should explain the failure")
	}
	if s, _ := reg.State("fan"); !s.Level {
		t.Error("fan state must be unchanged")
	}
}

func TestController_Success(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantMessage string
		wantApplied bool
	}{
		{"light on", `{"device":"light","action":"on","reply":"ok"}`, "执行成功：已为您开启客厅主灯 💡", true},
		{"fan off", `{"device":"fan","action":"off","reply":"ok"}`, "执行成功：风扇已停止运转 💨", true},
		{"ac setpoint", `{"device":"ac","action":"26C","reply":"ok"}`, "指令已发送：设备 ac -> 26C", true},
		{"unknown device", `{"device":"toaster","action":"on","reply":"ok"}`, "未知设备：toaster", true},
		{"chat only", `{"device":null,"action":null,"reply":"我是贾维斯"}`, "我是贾维斯", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newController(t, replyWith(tt.reply), &mockDriver{})

			res, err := c.Control(context.Background(), "  command  ")
			if err != nil {
				t.Fatalf("Control error: %v", err)
			}
			if res.Status != application.StatusSuccess {
				t.Errorf("status: got %q", res.Status)
			}
			if res.UserInput != "command" {
				t.Errorf("user_input: got %q", res.UserInput)
			}
			if res.Message != tt.wantMessage {
				t.Errorf("message: got %q, want %q", res.Message, tt.wantMessage)
			}
			if (res.Applied != nil) != tt.wantApplied {
				t.Errorf("applied: got %+v", res.Applied)
			}
			if res.ParsedAction == nil {
				t.Error("parsed_action missing")
			}
		})
	}
}

func TestController_HardwareFailure(t *testing.T) {
	driver := &mockDriver{}
	c, _ := newController(t, replyWith(`{"device":"light","action":"on","reply":"ok"}`), driver)
	driver.lines["light"].err = errors.New("EIO")

	_, err := c.Control(context.Background(), "开灯")

	var hwErr *domain.HardwareError
	if !errors.As(err, &hwErr) {
		t.Errorf("error: got %v, want HardwareError", err)
	}
}

func TestController_Devices(t *testing.T) {
	c, _ := newController(t, replyWith("ok"), &mockDriver{})

	devices := c.Devices()
	if len(devices) != 3 || devices[0].Device != "light" {
		t.Errorf("devices: got %+v", devices)
	}
}
