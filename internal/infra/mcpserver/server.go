package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"voice-butler/internal/application"
)

// Server exposes the controller as MCP tools so assistants can operate the
// house with the same semantics as the admin endpoint.
type Server struct {
	controller *application.Controller
	mcpServer  *sdk.Server
	logger     *slog.Logger
}

func NewServer(controller *application.Controller, version string, logger *slog.Logger) *Server {
	s := &Server{
		controller: controller,
		logger:     logger,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    "voice-butler",
		Version: version,
	}, nil)

	s.registerTools()
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *sdk.Server {
	return s.mcpServer
}

// Run serves over stdin/stdout until ctx is cancelled or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "control_home",
		Description: "Interpret a natural-language home command (Chinese or English) and apply it to the devices",
	}, s.handleControl)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "device_states",
		Description: "List every configured device with its current state",
	}, s.handleDeviceStates)
}

type ControlArgs struct {
	Command string `json:"command" jsonschema:"the spoken or typed command, e.g. 打开风扇"`
}

type DeviceStatesArgs struct{}

func (s *Server) handleControl(ctx context.Context, _ *sdk.CallToolRequest, args ControlArgs) (*sdk.CallToolResult, any, error) {
	if args.Command == "" {
		return nil, nil, fmt.Errorf("command is required")
	}

	result, err := s.controller.Control(ctx, args.Command)
	if err != nil {
		s.logger.Error("mcp control failed", "command", args.Command, "error", err)
		return nil, nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}

	return &sdk.CallToolResult{
		IsError: result.Status == application.StatusError,
		Content: []sdk.Content{
			&sdk.TextContent{Text: result.Message},
			&sdk.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func (s *Server) handleDeviceStates(_ context.Context, _ *sdk.CallToolRequest, _ DeviceStatesArgs) (*sdk.CallToolResult, any, error) {
	states := s.controller.Devices()

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Devices (%d):", len(states))},
	}
	for _, st := range states {
		level := "off"
		if st.Level {
			level = "on"
		}
		line := fmt.Sprintf("- %s: %s", st.Device, level)
		if st.Setpoint != "" {
			line += " (" + st.Setpoint + ")"
		}
		if st.Simulated {
			line += " [simulated]"
		}
		content = append(content, &sdk.TextContent{Text: line})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}
