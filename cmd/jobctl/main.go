// Package main is the entry point for the jobrelay CLI.
// The CLI is the operator terminal tool for interacting with the jobrelay
// ops API.
package main

import (
	"jobrelay/cmd/jobctl/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
