package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/teemow/inboxpilot/internal/mail"
)

var (
	draftPattern = regexp.MustCompile(`(?i)to\s+([^ ]+)\s+about\s+(.+)`)
	trashPattern = regexp.MustCompile(`(?i)email\s+(\d+)`)
)

// Draft is an email composed in chat and awaiting confirmation.
type Draft struct {
	RecipientID string
	Subject     string
	Message     string
}

// DraftStore holds at most one pending draft per user.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]Draft
}

// NewDraftStore creates an empty DraftStore.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]Draft)}
}

// Get returns the pending draft for userID.
func (s *DraftStore) Get(userID string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	return d, ok
}

// Put replaces the pending draft for userID.
func (s *DraftStore) Put(userID string, d Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = d
}

// Delete drops the pending draft for userID.
func (s *DraftStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}

// Chat answers free-form messages by mapping them onto prompts and tools.
type Chat struct {
	d      *Dispatcher
	drafts *DraftStore
}

// NewChat creates a Chat backed by d.
func NewChat(d *Dispatcher, drafts *DraftStore) *Chat {
	if drafts == nil {
		drafts = NewDraftStore()
	}
	return &Chat{d: d, drafts: drafts}
}

// Drafts returns the chat's draft store.
func (c *Chat) Drafts() *DraftStore { return c.drafts }

// Reply handles one chat message from userID.
func (c *Chat) Reply(ctx context.Context, svc mail.Service, userID, message string) ([]ToolResult, error) {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "draft an email"):
		if m := draftPattern.FindStringSubmatch(message); m != nil {
			return c.draft(ctx, userID, m[1], m[2])
		}

	case strings.Contains(lower, "send the email") || strings.Contains(lower, "yes, send it"):
		return c.sendDraft(ctx, svc, userID)

	case strings.Contains(lower, "summarize") && strings.Contains(lower, "email"):
		return c.firstUnread(ctx, svc, ToolSummarizeEmail, "No unread emails found to summarize.")

	case strings.Contains(lower, "read") && strings.Contains(lower, "email"):
		return c.firstUnread(ctx, svc, ToolReadEmail, "No unread emails found to read.")

	case strings.Contains(lower, "trash") && strings.Contains(lower, "email"):
		m := trashPattern.FindStringSubmatch(message)
		if m == nil {
			return texts(`Please specify an email ID to trash (e.g., "trash email 123").`), nil
		}
		res, err := c.d.CallTool(ctx, svc, ToolTrashEmail, map[string]any{ArgEmailID: m[1]})
		if err != nil {
			return nil, err
		}
		return []ToolResult{*res}, nil
	}

	answer, err := c.d.gen.Generate(ctx, fmt.Sprintf(
		`User asked: "%s". Respond helpfully and naturally, using your capabilities as an email assistant powered by Grok from xAI.`,
		message))
	if err != nil {
		return nil, err
	}
	return texts(answer), nil
}

func (c *Chat) draft(ctx context.Context, userID, recipient, content string) ([]ToolResult, error) {
	email := recipient
	if !strings.Contains(email, "@") {
		email = recipient + "@example.com"
	}
	p, err := c.d.GetPrompt(ctx, PromptDraftEmail, map[string]string{
		ArgContent:        content,
		ArgRecipient:      recipient,
		ArgRecipientEmail: email,
	})
	if err != nil {
		return nil, err
	}

	assistant := p.Messages[len(p.Messages)-1].Text
	subject, body := splitDraft(assistant)
	c.drafts.Put(userID, Draft{RecipientID: email, Subject: subject, Message: body})

	out := make([]ToolResult, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, *textResult(m.Text))
	}
	return out, nil
}

// splitDraft takes the subject from a leading "Subject:" line and the body
// from the first paragraph after it.
func splitDraft(text string) (subject, body string) {
	first, _, _ := strings.Cut(text, "\n")
	subject = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), "Subject:"))
	if parts := strings.Split(text, "\n\n"); len(parts) > 1 {
		body = strings.TrimSpace(parts[1])
	}
	return subject, body
}

func (c *Chat) sendDraft(ctx context.Context, svc mail.Service, userID string) ([]ToolResult, error) {
	d, ok := c.drafts.Get(userID)
	if !ok {
		return texts("No draft found to send. Please draft an email first."), nil
	}
	res, err := c.d.CallTool(ctx, svc, ToolSendEmail, map[string]any{
		ArgRecipientID: d.RecipientID,
		ArgSubject:     d.Subject,
		ArgMessage:     d.Message,
	})
	if err != nil {
		return nil, err
	}
	c.drafts.Delete(userID)
	return []ToolResult{*res}, nil
}

func (c *Chat) firstUnread(ctx context.Context, svc mail.Service, tool, none string) ([]ToolResult, error) {
	list := svc.GetUnreadEmails(ctx)
	if list.Error != "" {
		return texts(list.Error), nil
	}
	if len(list.Emails) == 0 {
		return texts(none), nil
	}
	res, err := c.d.CallTool(ctx, svc, tool, map[string]any{ArgEmailID: list.Emails[0].ID})
	if err != nil {
		return nil, err
	}
	return []ToolResult{*res}, nil
}

func texts(s ...string) []ToolResult {
	out := make([]ToolResult, len(s))
	for i, t := range s {
		out[i] = *textResult(t)
	}
	return out
}
