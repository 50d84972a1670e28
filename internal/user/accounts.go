package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/secret"
)

// LinkRequest carries the result of a successful provider sign-in.
// Tokens are plaintext; Accounts encrypts them before saving.
type LinkRequest struct {
	Provider     Provider
	ProviderID   string
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string
}

// Accounts manages the credential lifecycle of users.
type Accounts struct {
	store  Store
	cipher *secret.Cipher
	logger *slog.Logger
	now    func() time.Time
}

// NewAccounts creates an account service over store.
func NewAccounts(store Store, cipher *secret.Cipher, logger *slog.Logger) *Accounts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accounts{store: store, cipher: cipher, logger: logger, now: time.Now}
}

// Link attaches provider credentials to the user owning req.Email, creating
// the user on first sign-in. A user who signs in with a different provider
// keeps a single document; the new provider becomes active and the old
// provider's fields are left in place.
func (a *Accounts) Link(ctx context.Context, req LinkRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, apierror.BadRequest("Email not provided")
	}
	if req.Provider == ProviderLocal {
		return nil, apierror.BadRequest("Cannot link local provider")
	}
	if _, ok := ParseProvider(string(req.Provider)); !ok {
		return nil, apierror.BadRequest(fmt.Sprintf("Unsupported auth provider: %s", req.Provider))
	}

	access, err := a.cipher.Encrypt(req.AccessToken)
	if err != nil {
		return nil, apierror.Internal("Failed to encrypt access token")
	}
	refresh, err := a.cipher.Encrypt(req.RefreshToken)
	if err != nil {
		return nil, apierror.Internal("Failed to encrypt refresh token")
	}

	u, err := a.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		name := req.Name
		if name == "" {
			name = email
		}
		u = &User{
			Name:         name,
			Email:        email,
			Role:         RoleUser,
			Status:       StatusActive,
			Verified:     true,
			Subscription: Subscription{Plan: PlanFree, Status: StatusActive},
		}
	case err != nil:
		return nil, err
	}

	u.AuthProvider = req.Provider
	if req.ProviderID != "" {
		u.SetProviderID(req.Provider, req.ProviderID)
	}
	u.SetAccessToken(req.Provider, access)
	if refresh != "" {
		u.SetRefreshToken(req.Provider, refresh)
	}
	u.Touch(a.now())

	if err := a.store.Save(ctx, u); err != nil {
		return nil, err
	}

	a.logger.Info("linked provider account",
		logging.Provider(string(req.Provider)),
		logging.UserID(u.ID),
		logging.UserHash(email))

	return u, nil
}

// Logout clears every stored token of the user and records the sync time.
func (a *Accounts) Logout(ctx context.Context, userID string) error {
	u, err := a.load(ctx, userID)
	if err != nil {
		return err
	}

	u.ClearCredentials()
	u.Touch(a.now())

	if err := a.store.Save(ctx, u); err != nil {
		return err
	}

	a.logger.Info("cleared provider credentials", logging.UserID(userID))
	return nil
}

// Profile returns the user without credential material.
func (a *Accounts) Profile(ctx context.Context, userID string) (*User, error) {
	u, err := a.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (a *Accounts) load(ctx context.Context, userID string) (*User, error) {
	u, err := a.store.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.NotFound("User not found")
	}
	return u, err
}
