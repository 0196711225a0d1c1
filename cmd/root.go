// Package cmd implements the tgsend command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"tgsend/internal/app"
)

type rootOptions struct {
	configPath string
	debug      bool
	dryRun     bool
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "tgsend",
		Short:         "Bulk Telegram sender with resumable delivery",
		Long:          "tgsend delivers one message to a list of recipients over an authorized user session, keeping a durable ledger so interrupted runs resume without repeating anyone.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "./config.yaml", "path to the config file (JSON or YAML)")
	pf.BoolVar(&opts.debug, "debug", false, "verbose console logging")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "rehearse with the dryrun transport and a separate ledger")

	rootCmd.AddCommand(
		newVersionCmd(),
		newProfileCmd(opts),
		newSessionCmd(opts),
		newLoginCmd(opts),
		newSendCmd(opts),
		newRunCmd(opts),
	)

	return rootCmd
}

// withApp builds the application for a command invocation and tears it down
// afterwards.
func withApp(opts *rootOptions, fn func(a *app.App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{
			ConfigPath: opts.configPath,
			Debug:      opts.debug,
			DryRun:     opts.dryRun,
		})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a, cmd, args)
	}
}
