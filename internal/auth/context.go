package auth

import "context"

type userIDKey struct{}

// WithUserID returns ctx carrying id as the calling user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the calling user's id, if any.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

type claimsKey struct{}

// WithClaims returns ctx carrying the verified claims and their user id.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return WithUserID(context.WithValue(ctx, claimsKey{}, c), c.UserID)
}

// ClaimsFrom returns the verified claims, if any.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
