// Command smartclip runs the SmartClip note assistant, either as an HTTP
// service or as an interactive console session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Liu-design-beep/smartclip/common/version"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/app"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/config"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/observability"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "smartclip",
		Short:         "Natural-language note assistant",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newChatCommand(), newVersionCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cfg, err := build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			observability.From(ctx).Info("smartclip starting", "version", version.Version, "config", cfg)
			return a.Run(ctx)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// build loads configuration, installs the logger and assembles the app.
func build(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}
