package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

// RegisterMailTools registers all catalog tools and prompts with the MCP server
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Dispatcher() == nil {
		return fmt.Errorf("server context has no dispatcher")
	}

	for _, t := range sc.Dispatcher().ListTools() {
		s.AddTool(newTool(t), common.InstrumentedToolHandler(t.Name, sc, toolHandler(sc, t.Name)))
	}
	if sc.Chat() != nil {
		s.AddTool(newChatTool(), common.InstrumentedToolHandler(ChatToolName, sc, chatHandler(sc)))
	}
	for _, p := range sc.Dispatcher().ListPrompts() {
		s.AddPrompt(newPrompt(p), promptHandler(sc, p.Name))
	}
	return nil
}

func newTool(t dispatch.Tool) mcp.Tool {
	required := make(map[string]bool, len(t.Required))
	for _, name := range t.Required {
		required[name] = true
	}

	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Properties {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if required[p.Name] {
			propOpts = append(propOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, propOpts...))
	}
	return mcp.NewTool(t.Name, opts...)
}

func toolHandler(sc *server.ServerContext, name string) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTool(ctx, request, sc, name)
	}
}

func handleTool(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, name string) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	d := sc.Dispatcher()
	ctx = sc.WithCallTimeout(ctx)

	// Reject bad arguments before touching the user's credentials.
	if err := d.CheckTool(name, args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	svc, userID, err := sc.MailService(ctx)
	if err != nil {
		return serviceUnavailable(sc, name, userID, err), nil
	}
	common.SetProvider(ctx, svc.Provider())

	res, err := d.CallTool(ctx, svc, name, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toResult(res), nil
}

// serviceUnavailable reports a failure to build the caller's mailbox.
// Expired credentials are logged at info since only the user can fix them.
func serviceUnavailable(sc *server.ServerContext, tool, userID string, err error) *mcp.CallToolResult {
	l := logging.WithTool(sc.Logger(), tool)
	if apierror.IsUnauthorized(err) {
		l.Info("re-authentication required", logging.UserID(userID), logging.Err(err))
	} else {
		l.Debug("mail service unavailable", logging.UserID(userID), logging.Err(err))
	}
	return mcp.NewToolResultError(err.Error())
}

// toResult maps the dispatcher envelope onto an MCP result. Artifacts
// become structured content, keeping the text as the fallback.
func toResult(res *dispatch.ToolResult) *mcp.CallToolResult {
	if res.Artifact == nil {
		return mcp.NewToolResultText(res.Text)
	}
	return mcp.NewToolResultStructured(map[string]any{
		"type": res.Artifact.Type,
		"data": res.Artifact.Data,
	}, res.Text)
}
