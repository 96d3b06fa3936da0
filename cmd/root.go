// Package cmd implements the codespace CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/config"
)

// NewRootCmd creates the root codespace command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codespace",
		Short:         "codespace - local code editor with live preview",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewExportCmd())
	root.AddCommand(NewFormatCmd())
	root.AddCommand(NewLintCmd())
	root.AddCommand(NewTreeCmd())
	return root
}

// projectDir resolves the optional [project-dir] argument.
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid project directory: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("project directory: %s is not a directory", abs)
	}
	return abs, nil
}

// loadConfig reads the project config, falling back to defaults when the
// project has none. It never writes.
func loadConfig(dir string) (config.Config, string, error) {
	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), path, nil
	}
	if err != nil {
		return config.Config{}, path, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}
