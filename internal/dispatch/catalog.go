package dispatch

// Prompt names
const (
	PromptManageEmail = "manage-email"
	PromptDraftEmail  = "draft-email"
	PromptEditDraft   = "edit-draft"
)

// Tool names
const (
	ToolSendEmail       = "send-email"
	ToolTrashEmail      = "trash-email"
	ToolArchiveEmail    = "archive-email"
	ToolReplyToEmail    = "reply-to-email"
	ToolGetUnreadEmails = "get-unread-emails"
	ToolReadEmail       = "read-email"
	ToolSearchEmails    = "search-emails"
	ToolMarkEmailAsRead = "mark-email-as-read"
	ToolOpenEmail       = "open-email"
	ToolSummarizeEmail  = "summarize-email"
)

// Argument names
const (
	ArgContent        = "content"
	ArgRecipient      = "recipient"
	ArgRecipientEmail = "recipient_email"
	ArgChanges        = "changes"
	ArgCurrentDraft   = "current_draft"
	ArgRecipientID    = "recipient_id"
	ArgSubject        = "subject"
	ArgMessage        = "message"
	ArgEmailID        = "email_id"
	ArgQuery          = "query"
)

// Argument describes one prompt argument.
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Prompt is a named conversation template.
type Prompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Arguments   []Argument `json:"arguments,omitempty"`
}

// Property is one string parameter of a tool.
type Property struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tool is a named mailbox operation.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Properties  []Property `json:"properties"`
	Required    []string   `json:"required"`
}

const adminPrompt = `You are an email administrator powered by Grok from xAI. 
You can draft, edit, read, trash, archive, reply to, search, open, and send emails.
You've been given access to a specific email account. 
You have the following tools available:
- Send an email (send-email)
- Retrieve unread emails (get-unread-emails)
- Read email content (read-email)
- Trash email (trash-email)
- Archive email (archive-email)
- Reply to email (reply-to-email)
- Search emails (search-emails)
- Open email in browser (open-email)
Never send an email draft, trash, or archive an email unless the user confirms first. 
Always ask for approval if not already given. Use Grok's AI capabilities to assist with drafting and editing emails when requested.`

var prompts = []Prompt{
	{
		Name:        PromptManageEmail,
		Description: "Act like an email administrator with AI assistance",
	},
	{
		Name:        PromptDraftEmail,
		Description: "Draft an email with AI assistance from Grok",
		Arguments: []Argument{
			{Name: ArgContent, Description: "What the email is about", Required: true},
			{Name: ArgRecipient, Description: "Who should the email be addressed to", Required: true},
			{Name: ArgRecipientEmail, Description: "Recipient's email address", Required: true},
		},
	},
	{
		Name:        PromptEditDraft,
		Description: "Edit an existing email draft with AI assistance from Grok",
		Arguments: []Argument{
			{Name: ArgChanges, Description: "What changes should be made to the draft", Required: true},
			{Name: ArgCurrentDraft, Description: "The current draft to edit", Required: true},
		},
	},
}

var emailIDProperty = Property{Name: ArgEmailID, Description: "Email ID"}

var tools = []Tool{
	{
		Name:        ToolSendEmail,
		Description: "Sends email to recipient. Do not use if user only asked to draft email. Drafts must be approved before sending.",
		Properties: []Property{
			{Name: ArgRecipientID, Description: "Recipient email address"},
			{Name: ArgSubject, Description: "Email subject"},
			{Name: ArgMessage, Description: "Email content text"},
		},
		Required: []string{ArgRecipientID, ArgSubject, ArgMessage},
	},
	{
		Name:        ToolTrashEmail,
		Description: "Moves email to trash. Confirm before moving email to trash.",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
	{
		Name:        ToolArchiveEmail,
		Description: "Archives an email. Confirm before archiving.",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
	{
		Name:        ToolReplyToEmail,
		Description: "Replies to an existing email.",
		Properties: []Property{
			{Name: ArgEmailID, Description: "Email ID to reply to"},
			{Name: ArgMessage, Description: "Reply content"},
		},
		Required: []string{ArgEmailID, ArgMessage},
	},
	{
		Name:        ToolGetUnreadEmails,
		Description: "Retrieve unread emails",
	},
	{
		Name:        ToolReadEmail,
		Description: "Retrieves given email content",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
	{
		Name:        ToolSearchEmails,
		Description: "Searches emails based on a query",
		Properties:  []Property{{Name: ArgQuery, Description: "Search query"}},
		Required:    []string{ArgQuery},
	},
	{
		Name:        ToolMarkEmailAsRead,
		Description: "Marks given email as read",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
	{
		Name:        ToolOpenEmail,
		Description: "Open email in browser",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
	{
		Name:        ToolSummarizeEmail,
		Description: "Summarizes given email content with AI",
		Properties:  []Property{emailIDProperty},
		Required:    []string{ArgEmailID},
	},
}

// ListPrompts returns a copy of the prompt catalog.
func ListPrompts() []Prompt {
	out := make([]Prompt, len(prompts))
	for i, p := range prompts {
		p.Arguments = append([]Argument(nil), p.Arguments...)
		out[i] = p
	}
	return out
}

// ListTools returns a copy of the tool catalog.
func ListTools() []Tool {
	out := make([]Tool, len(tools))
	for i, t := range tools {
		t.Properties = append([]Property(nil), t.Properties...)
		t.Required = append([]string(nil), t.Required...)
		out[i] = t
	}
	return out
}

func findPrompt(name string) (Prompt, bool) {
	for _, p := range prompts {
		if p.Name == name {
			return p, true
		}
	}
	return Prompt{}, false
}

func findTool(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
