package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tgsend/internal/app"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage API credential profiles",
	}
	cmd.AddCommand(
		newProfileAddCmd(opts),
		newProfileListCmd(opts),
		newProfileRmCmd(opts),
	)
	return cmd
}

func newProfileAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <api-id> <api-hash>",
		Short: "Add a named credential profile",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, args []string) error {
			if err := a.Profiles().Create(args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile %q added\n", args[0])
			return nil
		}),
	}
}

func newProfileListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential profiles",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, _ []string) error {
			names := a.Profiles().Names()
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no profiles; add one with: tgsend profile add <name> <api-id> <api-hash>")
			}
			return nil
		}),
	}
}

func newProfileRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a credential profile",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, args []string) error {
			a.Profiles().Delete(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "profile %q removed\n", args[0])
			return nil
		}),
	}
}
