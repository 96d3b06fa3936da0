package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/app"
	"github.com/petervdpas/codespace/internal/export"
)

// NewExportCmd writes a project export without starting the server.
func NewExportCmd() *cobra.Command {
	var (
		typ    string
		out    string
		minify bool
	)
	c := &cobra.Command{
		Use:   "export [project-dir]",
		Short: "Export a project as zip, single HTML, JSON or a directory tree",
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

			t := export.Type(typ)
			if t == export.TypeDir {
				if out == "" {
					return fmt.Errorf("--out is required for %s exports", t)
				}
				n, err := export.ToFS(p.Store, osfs.New(out))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", n, out)
				return nil
			}

			art, err := export.Build(p.Store, t, export.Options{Minify: minify || cfg.Preview.Minify})
			if err != nil {
				return err
			}
			if out == "" {
				out = art.Name
			} else if st, err := os.Stat(out); err == nil && st.IsDir() {
				out = filepath.Join(out, art.Name)
			}
			if err := os.WriteFile(out, art.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d files, %d bytes)\n", out, art.Files, len(art.Data))
			return nil
		},
	}
	c.Flags().StringVar(&typ, "type", string(export.TypeZip), "export type: zip, html, json or dir")
	c.Flags().StringVar(&out, "out", "", "output file or directory")
	c.Flags().BoolVar(&minify, "minify", false, "minify single HTML exports")
	return c
}
