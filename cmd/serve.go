package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petervdpas/codespace/internal/app"
	"github.com/petervdpas/codespace/internal/config"
)

// NewServeCmd runs the editor service for a project directory.
func NewServeCmd() *cobra.Command {
	var (
		addr  string
		open  bool
		debug bool
	)
	c := &cobra.Command{
		Use:   "serve [project-dir]",
		Short: "Serve the editor and live preview for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(args)
			if err != nil {
				return err
			}
			cfgPath := filepath.Join(dir, config.FileName)
			cfg, created, err := config.Ensure(cfgPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", cfgPath, err)
			}
			if created {
				fmt.Fprintf(cmd.ErrOrStderr(), "created %s\n", cfgPath)
			}
			if cmd.Flags().Changed("addr") {
				cfg.Viewer.HTTPAddr = addr
			}
			if cmd.Flags().Changed("open") {
				cfg.Viewer.Open = open
			}
			if cmd.Flags().Changed("debug") {
				cfg.Viewer.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.Run(ctx, app.Options{
				ProjectDir: dir,
				CfgPath:    cfgPath,
				Cfg:        cfg,
				Ready: func(url string) {
					fmt.Fprintf(cmd.OutOrStdout(), "codespace ready at %s\n", url)
				},
			})
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides viewer.http_addr)")
	c.Flags().BoolVar(&open, "open", false, "open the editor in the default browser")
	c.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return c
}
