// Package main implements the cowsim CLI tool.
//
// cowsim replays storage access traces through the copy-on-write simulator
// and reports every point where a real copy-on-write implementation would
// have copied a shared buffer.
//
// Usage:
//
//	cowsim replay traces/*.yaml          # Replay traces, check expectations
//	cowsim replay --db run.db trace.yaml # Also store sessions and events
//	cowsim sessions --db run.db          # List stored sessions
//	cowsim version                       # Show version information
//
// Shadow tracking is compiled in only with the cowinstrument build tag:
//
//	go build -tags cowinstrument ./cmd/cowsim
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/cowsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
