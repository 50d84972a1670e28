package mail_tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/common"
)

// ChatToolName is the free-form assistant tool. Its drafts live in the
// server's Chat, so a draft and the message confirming it may arrive as
// separate calls.
const ChatToolName = "chat"

// artifactDraft tags the pending draft returned alongside chat text.
const artifactDraft = "draft"

func newChatTool() mcp.Tool {
	return mcp.NewTool(ChatToolName,
		mcp.WithDescription(`Talk to the email assistant. Understands "draft an email to NAME about TOPIC", `+
			`"send the email" (or "yes, send it"), "summarize my latest email", "read my latest email" `+
			`and "trash email ID"; anything else is answered by the language model.`),
		mcp.WithString(dispatch.ArgMessage,
			mcp.Required(),
			mcp.Description("The chat message"),
		),
	)
}

func chatHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleChat(ctx, request, sc)
	}
}

func handleChat(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	message, _ := request.GetArguments()[dispatch.ArgMessage].(string)
	message = strings.TrimSpace(message)
	if message == "" {
		return mcp.NewToolResultError("Missing required parameters: " + dispatch.ArgMessage), nil
	}
	ctx = sc.WithCallTimeout(ctx)

	svc, userID, err := sc.MailService(ctx)
	if err != nil {
		return serviceUnavailable(sc, ChatToolName, userID, err), nil
	}
	common.SetProvider(ctx, svc.Provider())

	chat := sc.Chat()
	results, err := chat.Reply(ctx, svc, userID, message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	text := strings.Join(parts, "\n\n")

	d, pending := chat.Drafts().Get(userID)
	if !pending {
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultStructured(map[string]any{
		"type": artifactDraft,
		"data": map[string]string{
			dispatch.ArgRecipientID: d.RecipientID,
			dispatch.ArgSubject:     d.Subject,
			dispatch.ArgMessage:     d.Message,
		},
	}, text), nil
}
