// Package main is the entry point for the voicegate CLI.
//
// Usage:
//
//	voicegate [flags] <command> [subcommand] [args]
//
// Commands:
//
//	enroll     - Enroll a user from WAV clips or the microphone
//	verify     - Verify a clip against an enrolled user
//	list       - List enrolled users
//	analyze    - Report clip quality and features
//	profile    - Inspect, check and restore stored profiles
//	store      - Profile store maintenance
//	synth      - Render a synthetic voice clip
//	config     - Configuration management
//	version    - Show version information
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/haivivi/voicegate/cmd/voicegate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, commands.ErrNotVerified) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
