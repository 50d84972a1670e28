package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Send one chat message to a linked mailbox",
		Long: `Chat interprets a short instruction against the linked mailbox, for example:

  inboxpilot chat --email me@example.com "summarize my latest email"
  inboxpilot chat --email me@example.com "read my latest email"
  inboxpilot chat --email me@example.com "trash email 42"

Drafting ("draft an email to bob about lunch on friday", then "yes, send it"
or "send the email") needs two messages to the same process. Drafts are kept
in memory, so use the chat tool of a running "inboxpilot serve" for them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return runChat(ctx, a, userID, email, strings.Join(args, " "), cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&email, "email", "", "Account email (alternative to --user)")

	return cmd
}

func runChat(ctx context.Context, a *app, userID, email, message string, out io.Writer) error {
	id, err := a.resolveUser(ctx, userID, email)
	if err != nil {
		return err
	}
	svc, err := a.factory.ForUser(ctx, id)
	if err != nil {
		return err
	}
	results, err := a.chat.Reply(ctx, svc, id, message)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(out, r.Text)
	}
	return nil
}
