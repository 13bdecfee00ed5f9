package main

// Entry point: runs the Cobra command tree and exits non-zero on error

import (
	"fmt"
	"os"
	"xrpl-listing-bot/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
