package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/lint"
)

// NewLintCmd validates files on disk and prints their markers.
func NewLintCmd() *cobra.Command {
	var jsonMode bool
	c := &cobra.Command{
		Use:   "lint <file>...",
		Short: "Validate files and print diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := map[string][]lint.Marker{}
			errs := 0
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				ext := strings.TrimPrefix(filepath.Ext(path), ".")
				ms := lint.Validate(ext, string(src))
				if ms == nil {
					ms = []lint.Marker{}
				}
				report[path] = ms
				errs += lint.Count(ms)[lint.Error]
				if !jsonMode {
					printMarkers(cmd, path, ms)
				}
			}
			if jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			if errs > 0 {
				return fmt.Errorf("%d error(s)", errs)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&jsonMode, "json", false, "print markers as JSON")
	return c
}

func printMarkers(cmd *cobra.Command, path string, ms []lint.Marker) {
	for _, m := range ms {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s: %s\n", path, m.Line, m.Column, m.Severity, m.Message)
	}
}
