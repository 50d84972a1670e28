// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - link: Store provider tokens for an account and print a session token
//   - logout: Clear the stored provider tokens of an account
//   - chat: Send one chat message to a linked mailbox
//   - generate-docs: Generate markdown documentation for all MCP tools and prompts
//   - version: Display version information
package cmd
