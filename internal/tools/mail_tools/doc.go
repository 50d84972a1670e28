// Package mail_tools registers the email capability catalog with an MCP
// server.
//
// One MCP tool is registered per catalog tool and one MCP prompt per
// catalog prompt. Every tool call resolves the caller, builds that user's
// mail service through the mailbox factory and hands the call to the
// dispatcher. Services are never cached across calls, so a token refreshed
// or revoked between two calls is always observed.
package mail_tools
