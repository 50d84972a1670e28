package common

import (
	"context"

	"github.com/teemow/inboxpilot/internal/auth"
	"github.com/teemow/inboxpilot/internal/server"
)

// Caller identifies who invoked a tool.
type Caller struct {
	UserID string
	Email  string
}

// CallerFromContext resolves the calling user. Over HTTP the session
// claims supply both fields; over stdio only the configured user id is
// known.
func CallerFromContext(ctx context.Context, sc *server.ServerContext) (Caller, bool) {
	if claims, ok := auth.ClaimsFrom(ctx); ok {
		return Caller{UserID: claims.UserID, Email: claims.Email}, true
	}
	id, err := sc.UserID(ctx)
	if err != nil {
		return Caller{}, false
	}
	return Caller{UserID: id}, true
}

type providerKey struct{}

// providerSlot lets a handler report which provider served the call.
type providerSlot struct{ name string }

func withProviderSlot(ctx context.Context) (context.Context, *providerSlot) {
	slot := &providerSlot{}
	return context.WithValue(ctx, providerKey{}, slot), slot
}

// SetProvider records the provider that served the current tool call.
// It is a no-op outside an instrumented handler.
func SetProvider(ctx context.Context, provider string) {
	if slot, ok := ctx.Value(providerKey{}).(*providerSlot); ok {
		slot.name = provider
	}
}
