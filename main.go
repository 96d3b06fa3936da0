// Package main is the entry point for the codespace CLI.
package main

import (
	"fmt"
	"os"

	"github.com/petervdpas/codespace/cmd"
)

// Version is injected at build time.
var Version = "dev"

func main() {
	rootCmd := cmd.NewRootCmd()
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
