package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/app"
	"github.com/petervdpas/codespace/internal/tree"
)

// NewTreeCmd prints the project structure summary.
func NewTreeCmd() *cobra.Command {
	var plain bool
	c := &cobra.Command{
		Use:   "tree [project-dir]",
		Short: "Print the project structure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(dir)
			if err != nil {
				return err
			}
			p, err := app.OpenProject(cmd.Context(), dir, cfg)
			if err != nil {
				return err
			}
			defer p.Slot.Close()

			if plain {
				_, err = fmt.Fprint(cmd.OutOrStdout(), tree.Text(tree.Build(p.Store)))
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), tree.Summary(p.Store, time.Now()))
			return err
		},
	}
	c.Flags().BoolVar(&plain, "plain", false, "print only the indented tree")
	return c
}
