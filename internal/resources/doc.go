// Package resources registers MCP resources describing the calling user.
package resources
