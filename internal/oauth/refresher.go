package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/secret"
	"github.com/teemow/inboxpilot/internal/user"
)

// ErrNoRefreshToken is the cause of the Unauthorized error returned when a
// user has no usable refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

var displayNames = map[user.Provider]string{
	user.ProviderGoogle:    "Google",
	user.ProviderMicrosoft: "Microsoft",
	user.ProviderYahoo:     "Yahoo",
}

// DisplayName returns the provider's human-readable name.
func DisplayName(p user.Provider) string {
	if n, ok := displayNames[p]; ok {
		return n
	}
	return string(p)
}

// Refresher exchanges stored refresh tokens for new access tokens and
// persists the result.
type Refresher struct {
	configs Configs
	store   user.Store
	cipher  *secret.Cipher
	http    *http.Client
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithHTTPClient sets the client used to reach token endpoints.
func WithHTTPClient(hc *http.Client) RefresherOption {
	return func(r *Refresher) { r.http = hc }
}

// WithMetrics records refresh attempts on m.
func WithMetrics(m *instrumentation.Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// NewRefresher creates a Refresher.
func NewRefresher(configs Configs, store user.Store, cipher *secret.Cipher, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		configs: configs,
		store:   store,
		cipher:  cipher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// refreshTimeout bounds a shared token exchange. The exchange is detached
// from the caller that started it, so one caller giving up does not fail
// the others.
const refreshTimeout = 30 * time.Second

// Refresh returns a fresh plaintext access token for the user's provider
// account. The new access token, and a rotated refresh token if the
// provider issued one, are re-encrypted and saved. Concurrent calls for the
// same user and provider share one exchange.
func (r *Refresher) Refresh(ctx context.Context, p user.Provider, userID string) (string, error) {
	ch := r.group.DoChan(string(p)+"/"+userID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return r.refresh(ctx, p, userID)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			r.logger.Debug("joined in-flight token refresh", logging.Provider(string(p)), logging.UserID(userID))
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Refresher) refresh(ctx context.Context, p user.Provider, userID string) (string, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return "", apierror.BadRequest(fmt.Sprintf("Unsupported auth provider: %s", p))
	}

	u, err := r.store.FindByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return "", apierror.NotFound("User not found")
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}

	refreshToken, err := r.cipher.Decrypt(u.RefreshTokenFor(p))
	if err != nil || refreshToken == "" {
		r.metrics.RecordOAuthTokenRefresh(ctx, string(p), instrumentation.RefreshMissing)
		return "", apierror.Wrap(http.StatusUnauthorized, "No refresh token available", ErrNoRefreshToken)
	}

	if r.http != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.http)
	}
	// An expiry in the past forces the token source to hit the endpoint.
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	}).Token()
	if err != nil {
		r.metrics.RecordOAuthTokenRefresh(ctx, string(p), instrumentation.RefreshFailure)
		r.logger.Warn("token refresh failed",
			logging.Provider(string(p)), logging.UserID(userID), logging.Err(err))
		return "", apierror.Wrap(http.StatusUnauthorized,
			fmt.Sprintf("Failed to refresh %s token", DisplayName(p)), err)
	}

	encAccess, err := r.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return "", fmt.Errorf("encrypting access token: %w", err)
	}
	u.SetAccessToken(p, encAccess)

	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		encRefresh, err := r.cipher.Encrypt(tok.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("encrypting refresh token: %w", err)
		}
		u.SetRefreshToken(p, encRefresh)
	}

	now := r.now().UTC()
	u.LastSync = &now
	if err := r.store.Save(ctx, u); err != nil {
		return "", fmt.Errorf("saving refreshed token: %w", err)
	}

	r.metrics.RecordOAuthTokenRefresh(ctx, string(p), instrumentation.RefreshSuccess)
	r.logger.Debug("token refreshed",
		logging.Provider(string(p)), logging.UserID(userID),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)))
	return tok.AccessToken, nil
}
