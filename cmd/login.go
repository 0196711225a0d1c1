package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgsend/internal/app"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		profileName string
		sessionName string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize a session slot via QR challenge",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.Login(ctx, profileName, sessionName); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %q authorized\n", sessionName)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "credential profile to dial with")
	cmd.Flags().StringVarP(&sessionName, "session", "s", "", "session slot to authorize")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
