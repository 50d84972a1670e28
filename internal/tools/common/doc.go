// Package common provides helpers shared by the MCP tool packages: caller
// resolution and the instrumented handler wrapper.
package common
