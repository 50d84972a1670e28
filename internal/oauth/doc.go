// Package oauth manages provider OAuth credentials: building per-provider
// oauth2 configurations, exchanging authorization codes, refreshing stored
// refresh tokens and validating Google access tokens.
//
// Refresh is the only place where persisted access tokens change outside of
// account linking. Concurrent refreshes for the same user and provider are
// collapsed into one token endpoint call.
package oauth
