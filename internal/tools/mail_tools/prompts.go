package mail_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/server"
)

func newPrompt(p dispatch.Prompt) mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(p.Description)}
	for _, a := range p.Arguments {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(a.Description)}
		if a.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(a.Name, argOpts...))
	}
	return mcp.NewPrompt(p.Name, opts...)
}

func promptHandler(sc *server.ServerContext, name string) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		res, err := sc.Dispatcher().GetPrompt(ctx, name, request.Params.Arguments)
		if err != nil {
			return nil, err
		}

		messages := make([]mcp.PromptMessage, 0, len(res.Messages))
		for _, m := range res.Messages {
			role := mcp.RoleUser
			if m.Role == "assistant" {
				role = mcp.RoleAssistant
			}
			messages = append(messages, mcp.NewPromptMessage(role, mcp.NewTextContent(m.Text)))
		}
		return mcp.NewGetPromptResult(res.Description, messages), nil
	}
}
