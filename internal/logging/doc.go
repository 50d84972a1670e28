// Package logging provides structured logging utilities for inboxpilot.
//
// This package centralizes logging patterns so that mail provider
// operations, token refreshes and tool invocations log with the same
// attribute names, using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithProvider(slog.Default(), "gmail")
//	logger.Debug("listed unread emails",
//	    logging.Operation("get_unread"),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("linked provider",
//	    logging.UserHash(email))
//
// # Security Considerations
//
// User emails are hashed to prevent PII leakage while allowing correlation.
// Tokens are never logged directly; use SanitizeToken.
package logging
