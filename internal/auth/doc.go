// Package auth issues and verifies the session JWTs that identify callers
// of the HTTP transport, and carries the resolved user id in a context.
package auth
