package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/llm"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/tools/mail_tools"
	"github.com/teemow/inboxpilot/internal/user"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools and prompts.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string, out io.Writer) error {
	// No credentials are needed to list tools.
	serverContext := server.NewServerContext(context.Background(), server.Deps{
		Store:      user.NewMemoryStore(),
		Dispatcher: dispatch.New(llm.Static(llm.OfflineReply), nil),
	})
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := mail_tools.RegisterMailTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register Mail tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := generateToolsMarkdown(tools, dispatch.ListPrompts())

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}
	_, err := io.WriteString(out, markdown)
	return err
}

func generateToolsMarkdown(tools []mcp.Tool, prompts []dispatch.Prompt) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools and prompts available when running inboxpilot as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)

	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor(category)))
	}
	if len(prompts) > 0 {
		sb.WriteString("- [Prompts](#prompts)\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Providers\n\n")
	sb.WriteString("Every tool acts on the mailbox of the calling user. The provider (Gmail, Outlook or Yahoo Mail) is the one the account was last linked with.\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	if len(prompts) > 0 {
		sb.WriteString("## Prompts\n\n")
		for _, p := range prompts {
			sb.WriteString(generatePromptMarkdown(p))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func anchor(heading string) string {
	return strings.ToLower(strings.ReplaceAll(heading, " ", "-"))
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	switch name {
	case dispatch.ToolGetUnreadEmails, dispatch.ToolReadEmail, dispatch.ToolSearchEmails,
		dispatch.ToolOpenEmail, dispatch.ToolSummarizeEmail:
		return "Reading Tools"
	case dispatch.ToolSendEmail, dispatch.ToolReplyToEmail:
		return "Sending Tools"
	case dispatch.ToolTrashEmail, dispatch.ToolArchiveEmail, dispatch.ToolMarkEmailAsRead:
		return "Organizing Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredLabel(contains(tool.InputSchema.Required, name))))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func generatePromptMarkdown(p dispatch.Prompt) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", p.Name))
	if p.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", p.Description))
	}
	if len(p.Arguments) > 0 {
		sb.WriteString("**Arguments:**\n")
		for _, arg := range p.Arguments {
			sb.WriteString(fmt.Sprintf("- `%s` (%s): %s\n", arg.Name, requiredLabel(arg.Required), arg.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
