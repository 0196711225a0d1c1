package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgsend/internal/app"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled-delivery daemon",
		Long:  "Runs deliveries on the cron schedule from the config file, reloading tunable settings on config edits. Intended to run under systemd (Type=notify).",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.RunDaemon(ctx)
		}),
	}
}
