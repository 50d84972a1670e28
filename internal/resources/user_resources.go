package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/server"
)

// ProfileURI is the URI of the caller's profile resource.
const ProfileURI = "user://profile"

// RegisterUserResources registers session-specific user resources
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Accounts() == nil {
		return fmt.Errorf("server context has no account manager")
	}

	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("The linked account of the current user, without credentials"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})
	return nil
}

// handleUserProfile returns the caller's account with tokens stripped
func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	userID, err := sc.UserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := sc.Accounts().Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	jsonData, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
