package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/llm"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mail"
)

// Artifact types
const (
	ArtifactJSON       = "json"
	ArtifactDictionary = "dictionary"
)

// Message is one turn of a prompt conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// PromptResult is the conversation seed produced by GetPrompt.
type PromptResult struct {
	Description string    `json:"description,omitempty"`
	Messages    []Message `json:"messages"`
}

// Artifact is the structured form of a tool result.
type Artifact struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ToolResult is the envelope around every tool outcome. Text is always
// human-readable or JSON; Artifact is set for lists and emails.
type ToolResult struct {
	Type     string    `json:"type"`
	Text     string    `json:"text"`
	Artifact *Artifact `json:"artifact,omitempty"`
}

func textResult(text string) *ToolResult {
	return &ToolResult{Type: "text", Text: text}
}

func jsonResult(v any, artifactType string) (*ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &ToolResult{
		Type:     "text",
		Text:     string(data),
		Artifact: &Artifact{Type: artifactType, Data: v},
	}, nil
}

// Dispatcher runs prompts and tools.
type Dispatcher struct {
	gen    llm.Generator
	logger *slog.Logger
}

// New creates a Dispatcher using gen for generated text.
func New(gen llm.Generator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{gen: gen, logger: logger}
}

// ListPrompts returns the prompt catalog.
func (d *Dispatcher) ListPrompts() []Prompt { return ListPrompts() }

// ListTools returns the tool catalog.
func (d *Dispatcher) ListTools() []Tool { return ListTools() }

// missing returns the names in required that have no non-empty value.
func missing(required []string, has func(string) bool) []string {
	var out []string
	for _, name := range required {
		if !has(name) {
			out = append(out, name)
		}
	}
	return out
}

// GetPrompt builds the named conversation.
func (d *Dispatcher) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	p, ok := findPrompt(name)
	if !ok {
		return nil, apierror.BadRequest("Prompt not found: " + name)
	}

	var required []string
	for _, a := range p.Arguments {
		if a.Required {
			required = append(required, a.Name)
		}
	}
	if miss := missing(required, func(k string) bool { return args[k] != "" }); len(miss) > 0 {
		return nil, apierror.BadRequest("Missing required arguments: " + strings.Join(miss, ", "))
	}

	switch name {
	case PromptManageEmail:
		welcome, err := d.gen.Generate(ctx, "Welcome to email management with Groq!")
		if err != nil {
			return nil, err
		}
		return &PromptResult{Description: p.Description, Messages: []Message{
			{Role: "user", Text: adminPrompt},
			{Role: "assistant", Text: welcome},
		}}, nil

	case PromptDraftEmail:
		content, recipient, email := args[ArgContent], args[ArgRecipient], args[ArgRecipientEmail]
		draft, err := d.gen.Generate(ctx, fmt.Sprintf(
			"Draft an email about %s for %s (%s). Include a subject line starting with 'Subject:' on the first line. "+
				"Do not send the email yet, just draft it and ask the user for their thoughts.",
			content, recipient, email))
		if err != nil {
			return nil, err
		}
		return &PromptResult{Description: p.Description, Messages: []Message{
			{Role: "user", Text: fmt.Sprintf("Please draft an email about %s for %s (%s).", content, recipient, email)},
			{Role: "assistant", Text: draft + "\n\nWhat do you think of this draft?"},
		}}, nil

	default: // PromptEditDraft
		changes, current := args[ArgChanges], args[ArgCurrentDraft]
		edit, err := d.gen.Generate(ctx, fmt.Sprintf("Edit this draft: %s with changes: %s", current, changes))
		if err != nil {
			return nil, err
		}
		return &PromptResult{Description: p.Description, Messages: []Message{
			{Role: "user", Text: fmt.Sprintf("Please revise the current email draft:\n%s\n\nRequested changes:\n%s", current, changes)},
			{Role: "assistant", Text: edit},
		}}, nil
	}
}

// stringArg returns args[name] as a string. Non-string scalars are
// formatted; nil is empty.
func stringArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// CheckTool reports whether name is a known tool and args carry all of its
// required parameters.
func (d *Dispatcher) CheckTool(name string, args map[string]any) error {
	t, ok := findTool(name)
	if !ok {
		return apierror.BadRequest("Unknown tool: " + name)
	}
	if miss := missing(t.Required, func(k string) bool { return stringArg(args, k) != "" }); len(miss) > 0 {
		return apierror.BadRequest("Missing required parameters: " + strings.Join(miss, ", "))
	}
	return nil
}

// CallTool validates args and runs the named tool against svc.
func (d *Dispatcher) CallTool(ctx context.Context, svc mail.Service, name string, args map[string]any) (*ToolResult, error) {
	if err := d.CheckTool(name, args); err != nil {
		return nil, err
	}

	logger := logging.WithTool(d.logger, name)
	logger.Debug("calling tool", logging.Provider(svc.Provider()))

	id := stringArg(args, ArgEmailID)
	switch name {
	case ToolSendEmail:
		res := svc.SendEmail(ctx, stringArg(args, ArgRecipientID), stringArg(args, ArgSubject), stringArg(args, ArgMessage), nil)
		if res.OK() {
			return textResult("Email sent successfully. Message ID: " + res.MessageID), nil
		}
		return textResult("Failed to send email: " + res.ErrorMessage), nil

	case ToolReplyToEmail:
		res := svc.ReplyToEmail(ctx, id, stringArg(args, ArgMessage), nil)
		if res.OK() {
			return textResult("Reply sent successfully. Message ID: " + res.MessageID), nil
		}
		return textResult("Failed to send reply: " + res.ErrorMessage), nil

	case ToolGetUnreadEmails:
		return listResult(svc.GetUnreadEmails(ctx))

	case ToolSearchEmails:
		return listResult(svc.SearchEmails(ctx, stringArg(args, ArgQuery)))

	case ToolReadEmail:
		res := svc.ReadEmail(ctx, id)
		if res.Error != "" {
			return textResult(res.Error), nil
		}
		return jsonResult(res.Email, ArtifactDictionary)

	case ToolTrashEmail:
		return textResult(svc.TrashEmail(ctx, id)), nil

	case ToolArchiveEmail:
		return textResult(svc.ArchiveEmail(ctx, id)), nil

	case ToolMarkEmailAsRead:
		return textResult(svc.MarkEmailAsRead(ctx, id)), nil

	case ToolOpenEmail:
		return textResult(svc.OpenEmail(ctx, id)), nil

	default: // ToolSummarizeEmail
		res := svc.ReadEmail(ctx, id)
		if res.Error != "" {
			return nil, apierror.Internal(res.Error)
		}
		summary, err := d.gen.Generate(ctx, "Summarize this email content: "+res.Email.Content)
		if err != nil {
			return nil, err
		}
		return textResult(summary), nil
	}
}

func listResult(res mail.ListResult) (*ToolResult, error) {
	if res.Error != "" {
		return textResult(res.Error), nil
	}
	return jsonResult(res.Emails, ArtifactJSON)
}
