package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/app"
	"github.com/petervdpas/codespace/internal/config"
	"github.com/petervdpas/codespace/internal/util"
)

// NewFormatCmd runs the formatter chain over a file on disk.
func NewFormatCmd() *cobra.Command {
	var (
		project string
		write   bool
	)
	c := &cobra.Command{
		Use:   "format <file>",
		Short: "Format a file with the formatter chain for its extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dir, err := projectDir([]string{project})
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(dir)
			if err != nil {
				return err
			}
			cfg.Format = withoutMissingPluginDir(cfg.Format, dir)

			eng, reg := app.Formatters(cfg, dir)
			if eng != nil {
				defer eng.Close()
			}

			ext := strings.TrimPrefix(filepath.Ext(args[0]), ".")
			res, err := reg.Format(cmd.Context(), ext, string(src))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", args[0], res.Formatter, res.Layer)

			if !write {
				_, err = fmt.Fprint(cmd.OutOrStdout(), res.Content)
				return err
			}
			if res.Unchanged {
				return nil
			}
			return util.WriteFileAtomic(args[0], []byte(res.Content))
		},
	}
	c.Flags().StringVarP(&project, "project", "p", ".", "project directory holding "+config.FileName)
	c.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return c
}

// withoutMissingPluginDir disables lua when the project has no plugin
// directory, so a one-off format never creates one.
func withoutMissingPluginDir(f config.Format, dir string) config.Format {
	if !f.HasPlugin(config.PluginLua) {
		return f
	}
	if _, err := os.Stat(util.ResolvePath(dir, f.PluginDir)); err == nil {
		return f
	}
	f.Plugins = slices.DeleteFunc(slices.Clone(f.Plugins), func(p string) bool { return p == config.PluginLua })
	return f
}
