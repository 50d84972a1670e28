package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored provider tokens of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return runLogout(ctx, a, userID, email, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&email, "email", "", "Account email (alternative to --user)")

	return cmd
}

func runLogout(ctx context.Context, a *app, userID, email string, out io.Writer) error {
	id, err := a.resolveUser(ctx, userID, email)
	if err != nil {
		return err
	}
	if err := a.accounts.Logout(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged out user %s\n", id)
	return nil
}
