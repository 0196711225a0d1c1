package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tgsend/internal/app"
	"tgsend/internal/session"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persisted session slots",
	}
	cmd.AddCommand(
		newSessionListCmd(opts),
		newSessionRmCmd(opts),
	)
	return cmd
}

func newSessionListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List session slots",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, _ []string) error {
			names, err := session.List(a.SessionsDir())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no sessions; authorize one with: tgsend login")
			}
			return nil
		}),
	}
}

func newSessionRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a session slot",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, args []string) error {
			if err := session.Delete(a.SessionsDir(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %q removed\n", args[0])
			return nil
		}),
	}
}
