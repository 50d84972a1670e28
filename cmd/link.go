package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/user"
)

type linkOptions struct {
	provider     string
	email        string
	name         string
	providerID   string
	code         string
	accessToken  string
	refreshToken string
	authURL      bool
	state        string
}

func newLinkCmd() *cobra.Command {
	var opts linkOptions

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a Google, Microsoft or Yahoo mail account",
		Long: `Link stores encrypted provider tokens for an account and prints a session
token for the streamable HTTP transport.

Tokens come either from an authorization code (--code), which is exchanged
with the provider, or directly from --access-token and --refresh-token.
Use --auth-url to print the provider's consent URL first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return runLink(ctx, a, opts, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&opts.provider, "provider", "", "Provider: google, microsoft or yahoo")
	cmd.Flags().StringVar(&opts.email, "email", "", "Account email")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name")
	cmd.Flags().StringVar(&opts.providerID, "provider-id", "", "Account id at the provider")
	cmd.Flags().StringVar(&opts.code, "code", "", "Authorization code to exchange for tokens")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "Provider access token")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "Provider refresh token")
	cmd.Flags().BoolVar(&opts.authURL, "auth-url", false, "Print the consent URL for --provider and exit")
	cmd.Flags().StringVar(&opts.state, "state", "inboxpilot", "OAuth state used with --auth-url")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func runLink(ctx context.Context, a *app, opts linkOptions, out io.Writer) error {
	provider, ok := user.ParseProvider(opts.provider)
	if !ok || provider == user.ProviderLocal {
		return fmt.Errorf("unsupported provider %q", opts.provider)
	}

	if opts.authURL {
		u, err := a.oauth.AuthURL(provider, opts.state)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, u)
		return nil
	}

	access, refresh := opts.accessToken, opts.refreshToken
	if opts.code != "" {
		tok, err := a.oauth.Exchange(ctx, provider, opts.code)
		if err != nil {
			return err
		}
		access, refresh = tok.AccessToken, tok.RefreshToken
	}
	if access == "" && refresh == "" {
		return fmt.Errorf("either --code or --access-token/--refresh-token is required")
	}

	u, err := a.accounts.Link(ctx, user.LinkRequest{
		Provider:     provider,
		ProviderID:   opts.providerID,
		Email:        opts.email,
		Name:         opts.name,
		AccessToken:  access,
		RefreshToken: refresh,
	})
	if err != nil {
		return err
	}

	token, expires, err := a.tokens.Issue(u)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Linked %s account for user %s\n", u.AuthProvider, u.ID)
	fmt.Fprintf(out, "Session token (expires %s):\n%s\n", expires.Format("2006-01-02 15:04:05 MST"), token)
	return nil
}
