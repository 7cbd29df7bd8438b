// ABOUTME: MCP server assembly
// ABOUTME: Registers the session tools on a go-sdk server
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer returns an MCP server exposing the session tools.
func NewServer(h *SessionHandlers, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "peoplelogin",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "auth_status",
		Description: "Report whether the Google session is authorized, optionally re-checking without user interaction",
	}, h.AuthStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_connections",
		Description: "List up to ten Google contacts of the authorized user by display name",
	}, h.ListConnections)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "logout",
		Description: "Log the Google session out and forget the stored grant",
	}, h.Logout)

	return server
}
