// Package commands defines the voice-butler CLI and wires dependencies for subcommands.
//
// Commands
//
//   - run        Listen on the microphone (or a replay file) and drive the devices
//   - serve      Run only the admin HTTP API
//   - classify   Classify one text command and print the decision
//   - mcp        Expose the controller as MCP tools over stdio
//   - devices    List the configured devices
//
// The root command loads the YAML config and the .env file and builds the
// logger before any subcommand runs.
package commands
