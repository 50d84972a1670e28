package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/user"
)

// YahooEndpoint is Yahoo's OAuth 2.0 endpoint.
var YahooEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.login.yahoo.com/oauth2/request_auth",
	TokenURL: "https://api.login.yahoo.com/oauth2/get_token",
}

// Credentials are the client registration for one provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether a client id is set.
func (c Credentials) Configured() bool { return c.ClientID != "" }

// Configs maps providers to their oauth2 configuration.
type Configs map[user.Provider]*oauth2.Config

// NewConfigs builds configurations for every provider whose credentials are
// set.
func NewConfigs(googleCreds, microsoftCreds, yahooCreds Credentials) Configs {
	cfgs := Configs{}
	if googleCreds.Configured() {
		cfgs[user.ProviderGoogle] = newConfig(googleCreds, google.Endpoint,
			gmail.MailGoogleComScope,
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		)
	}
	if microsoftCreds.Configured() {
		cfgs[user.ProviderMicrosoft] = newConfig(microsoftCreds, microsoft.AzureADEndpoint("common"),
			"offline_access", "User.Read", "Mail.ReadWrite", "Mail.Send",
		)
	}
	if yahooCreds.Configured() {
		cfgs[user.ProviderYahoo] = newConfig(yahooCreds, YahooEndpoint, "openid", "email", "mail-w")
	}
	return cfgs
}

func newConfig(c Credentials, endpoint oauth2.Endpoint, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

func (c Configs) lookup(p user.Provider) (*oauth2.Config, error) {
	cfg, ok := c[p]
	if !ok {
		return nil, fmt.Errorf("no OAuth client configured for %s", p)
	}
	return cfg, nil
}

// AuthURL returns the consent URL for p. Offline access is requested so the
// provider issues a refresh token.
func (c Configs) AuthURL(p user.Provider, state string) (string, error) {
	cfg, err := c.lookup(p)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens.
func (c Configs) Exchange(ctx context.Context, p user.Provider, code string) (*oauth2.Token, error) {
	cfg, err := c.lookup(p)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}
