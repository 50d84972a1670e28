// Package server provides the MCP server context and the HTTP side of the
// inboxpilot server.
//
// # Key Components
//
// ServerContext carries the collaborators every MCP handler needs: the
// mailbox factory that builds a provider service per call, the capability
// dispatcher, account management and the instrumentation sinks. It also
// resolves the calling user. Over streamable HTTP the user comes from the
// session JWT; over stdio it is fixed at startup.
//
// HTTPServer serves the MCP streamable-HTTP endpoint behind the JWT
// middleware, together with health endpoints. MetricsServer exposes
// Prometheus metrics on a dedicated listener.
package server
