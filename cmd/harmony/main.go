// Package main is the entry point for the harmony CLI.
//
// Usage:
//
//	harmony [flags] <command> [args]
//
// Commands:
//
//	run      - Play music driven by a game connection
//	analyze  - Inspect a MIDI file and pick its Markov order
//	bench    - Time the order search on random melodies
//	record   - Capture a keyboard performance to a MIDI file
//	ports    - List or watch MIDI ports
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"go-harmony/cmd/harmony/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
