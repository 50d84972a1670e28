package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/gmail"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mail"
	"github.com/teemow/inboxpilot/internal/oauth"
	"github.com/teemow/inboxpilot/internal/outlook"
	"github.com/teemow/inboxpilot/internal/secret"
	"github.com/teemow/inboxpilot/internal/user"
	"github.com/teemow/inboxpilot/internal/yahoo"
)

// Refresher obtains a fresh access token for a user's provider account.
type Refresher interface {
	Refresh(ctx context.Context, p user.Provider, userID string) (string, error)
}

// Validator checks a Google access token.
type Validator interface {
	ValidateGoogleToken(ctx context.Context, accessToken string) bool
}

// Builders construct provider services from plaintext credentials.
type Builders struct {
	Gmail   func(ctx context.Context, u *user.User, accessToken string) (mail.Service, error)
	Outlook func(ctx context.Context, u *user.User, accessToken string, refresh outlook.RefreshFunc) (mail.Service, error)
	Yahoo   func(ctx context.Context, u *user.User, accessToken string, refresh yahoo.RefreshFunc) (mail.Service, error)
}

// DefaultBuilders returns builders for the real provider clients.
func DefaultBuilders(logger *slog.Logger) Builders {
	return Builders{
		Gmail: func(ctx context.Context, u *user.User, accessToken string) (mail.Service, error) {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
			svc, err := gmail.NewService(ctx, u.Email, ts, logger)
			if err != nil {
				return nil, err
			}
			return svc, nil
		},
		Outlook: func(_ context.Context, _ *user.User, accessToken string, refresh outlook.RefreshFunc) (mail.Service, error) {
			return outlook.NewService(accessToken, outlook.WithRefresh(refresh), outlook.WithLogger(logger)), nil
		},
		Yahoo: func(_ context.Context, u *user.User, accessToken string, refresh yahoo.RefreshFunc) (mail.Service, error) {
			return yahoo.NewService(u.Email, accessToken, yahoo.WithRefresh(refresh), yahoo.WithLogger(logger)), nil
		},
	}
}

// Factory builds a mail.Service for a user.
type Factory struct {
	store     user.Store
	cipher    *secret.Cipher
	refresher Refresher
	validator Validator
	builders  Builders
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithBuilders replaces the provider constructors.
func WithBuilders(b Builders) Option { return func(f *Factory) { f.builders = b } }

// WithMetrics instruments built services.
func WithMetrics(m *instrumentation.Metrics) Option { return func(f *Factory) { f.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(f *Factory) { f.logger = l } }

// NewFactory creates a Factory.
func NewFactory(store user.Store, cipher *secret.Cipher, refresher Refresher, validator Validator, opts ...Option) *Factory {
	f := &Factory{
		store:     store,
		cipher:    cipher,
		refresher: refresher,
		validator: validator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.builders.Gmail == nil && f.builders.Outlook == nil && f.builders.Yahoo == nil {
		f.builders = DefaultBuilders(f.logger)
	}
	return f
}

// ForUser returns a service for the user's linked provider.
func (f *Factory) ForUser(ctx context.Context, userID string) (mail.Service, error) {
	u, err := f.store.FindByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, apierror.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	var svc mail.Service
	switch u.AuthProvider {
	case user.ProviderGoogle:
		svc, err = f.google(ctx, u)
	case user.ProviderMicrosoft:
		svc, err = f.microsoft(ctx, u)
	case user.ProviderYahoo:
		svc, err = f.yahoo(ctx, u)
	default:
		return nil, apierror.BadRequest(fmt.Sprintf("Unsupported auth provider: %s", u.AuthProvider))
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug("mail service ready",
		logging.UserID(u.ID), logging.Provider(svc.Provider()))
	return Instrument(svc, f.metrics), nil
}

// open decrypts a stored credential. Undecryptable values count as absent.
func (f *Factory) open(u *user.User, field, ciphertext string) string {
	if ciphertext == "" {
		return ""
	}
	plain, err := f.cipher.Decrypt(ciphertext)
	if err != nil {
		f.logger.Warn("stored credential cannot be decrypted",
			logging.UserID(u.ID), slog.String("field", field), logging.Err(err))
		return ""
	}
	return plain
}

func reauthenticate(p user.Provider) error {
	return apierror.Unauthorized(fmt.Sprintf("Authentication expired. Please re-authenticate with %s.", oauth.DisplayName(p)))
}

func (f *Factory) google(ctx context.Context, u *user.User) (mail.Service, error) {
	access := f.open(u, "googleAccessToken", u.GoogleAccessToken)
	refresh := f.open(u, "googleRefreshToken", u.RefreshTokenFor(user.ProviderGoogle))

	if refresh == "" {
		if access == "" || !f.validator.ValidateGoogleToken(ctx, access) {
			return nil, reauthenticate(user.ProviderGoogle)
		}
		return f.builders.Gmail(ctx, u, access)
	}

	fresh, err := f.refresher.Refresh(ctx, user.ProviderGoogle, u.ID)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, apierror.Wrap(http.StatusUnauthorized, "Failed to refresh Google token", err)
	}
	return f.builders.Gmail(ctx, u, fresh)
}

// microsoft does not refresh up front. Graph access tokens are refreshed
// by the service on its first 401.
func (f *Factory) microsoft(ctx context.Context, u *user.User) (mail.Service, error) {
	access := f.open(u, "microsoftAccessToken", u.MicrosoftAccessToken)
	if access == "" {
		return nil, reauthenticate(user.ProviderMicrosoft)
	}

	id := u.ID
	refresh := func(ctx context.Context) (string, error) {
		return f.refresher.Refresh(ctx, user.ProviderMicrosoft, id)
	}
	return f.builders.Outlook(ctx, u, access, refresh)
}

// yahoo refreshes up front only when no access token is stored. A stored
// token that IMAP or SMTP rejects is refreshed by the service.
func (f *Factory) yahoo(ctx context.Context, u *user.User) (mail.Service, error) {
	access := f.open(u, "yahooAccessToken", u.YahooAccessToken)
	canRefresh := f.open(u, "yahooRefreshToken", u.RefreshTokenFor(user.ProviderYahoo)) != ""
	if access == "" {
		if !canRefresh {
			return nil, reauthenticate(user.ProviderYahoo)
		}
		fresh, err := f.refresher.Refresh(ctx, user.ProviderYahoo, u.ID)
		if err != nil {
			return nil, err
		}
		access = fresh
	}

	var refresh yahoo.RefreshFunc
	if canRefresh {
		id := u.ID
		refresh = func(ctx context.Context) (string, error) {
			return f.refresher.Refresh(ctx, user.ProviderYahoo, id)
		}
	}
	return f.builders.Yahoo(ctx, u, access, refresh)
}
