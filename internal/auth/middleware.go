package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/user"
)

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "accessToken"

// tokenFrom extracts the bearer token from the header or cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Middleware authenticates requests with a session token. The token's user
// must exist and be active.
func Middleware(tokens *Tokens, store user.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFrom(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("rejected session token", logging.Err(err))
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			u, err := store.FindByID(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, user.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			case err != nil:
				logger.Error("failed to load session user", logging.UserID(claims.UserID), logging.Err(err))
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if u.Status != user.StatusActive {
				writeError(w, http.StatusForbidden, "Account is not active")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
