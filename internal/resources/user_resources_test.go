package resources

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/secret"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/user"
)

func TestHandleUserProfile(t *testing.T) {
	ctx := context.Background()
	store := user.NewMemoryStore()
	cipher, err := secret.NewCipher("test-key", "")
	require.NoError(t, err)
	accounts := user.NewAccounts(store, cipher, nil)

	u, err := accounts.Link(ctx, user.LinkRequest{
		Provider:     user.ProviderGoogle,
		ProviderID:   "g-1",
		Email:        "ada@example.com",
		Name:         "Ada",
		AccessToken:  "access-secret",
		RefreshToken: "refresh-secret",
	})
	require.NoError(t, err)

	sc := server.NewServerContext(ctx, server.Deps{Store: store, Accounts: accounts, DefaultUserID: u.ID})
	defer sc.Shutdown()
	require.NoError(t, RegisterUserResources(mcpserver.NewMCPServer("test", "0.0.0"), sc))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = ProfileURI

	contents, err := handleUserProfile(ctx, req, sc)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, ProfileURI, text.URI)
	assert.Contains(t, text.Text, `"email": "ada@example.com"`)
	assert.False(t, strings.Contains(text.Text, "secret"), "profile leaks token material")
}

func TestHandleUserProfile_UnknownUser(t *testing.T) {
	store := user.NewMemoryStore()
	cipher, err := secret.NewCipher("test-key", "")
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), server.Deps{
		Store:         store,
		Accounts:      user.NewAccounts(store, cipher, nil),
		DefaultUserID: "ghost",
	})
	defer sc.Shutdown()

	_, err = handleUserProfile(context.Background(), mcp.ReadResourceRequest{}, sc)
	assert.True(t, apierror.IsNotFound(err))
}
