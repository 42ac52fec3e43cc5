package main

import (
	"os"

	"voice-butler/cmd/voice-butler/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
