package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/llm"
	"github.com/teemow/inboxpilot/internal/mail"
	"github.com/teemow/inboxpilot/internal/mail/mailtest"
)

// echo returns the prompt it was given, prefixed so tests can spot it.
func echo() llm.Generator {
	return llm.Func(func(_ context.Context, prompt string) (string, error) {
		return "AI: " + prompt, nil
	})
}

func TestListCatalog(t *testing.T) {
	d := New(echo(), nil)

	var promptNames []string
	for _, p := range d.ListPrompts() {
		promptNames = append(promptNames, p.Name)
	}
	assert.Equal(t, []string{PromptManageEmail, PromptDraftEmail, PromptEditDraft}, promptNames)

	var toolNames []string
	for _, tool := range d.ListTools() {
		toolNames = append(toolNames, tool.Name)
	}
	assert.Equal(t, []string{
		ToolSendEmail, ToolTrashEmail, ToolArchiveEmail, ToolReplyToEmail, ToolGetUnreadEmails,
		ToolReadEmail, ToolSearchEmails, ToolMarkEmailAsRead, ToolOpenEmail, ToolSummarizeEmail,
	}, toolNames)
}

func TestListTools_ReturnsCopy(t *testing.T) {
	first := ListTools()
	first[0].Required[0] = "mutated"
	first[0].Name = "mutated"

	second := ListTools()
	assert.Equal(t, ToolSendEmail, second[0].Name)
	assert.Equal(t, ArgRecipientID, second[0].Required[0])
}

func TestGetPrompt(t *testing.T) {
	d := New(echo(), nil)
	ctx := context.Background()

	t.Run("manage email", func(t *testing.T) {
		res, err := d.GetPrompt(ctx, PromptManageEmail, nil)
		require.NoError(t, err)
		require.Len(t, res.Messages, 2)
		assert.Equal(t, "user", res.Messages[0].Role)
		assert.True(t, strings.HasPrefix(res.Messages[0].Text, "You are an email administrator"))
		assert.Equal(t, "assistant", res.Messages[1].Role)
		assert.Equal(t, "AI: Welcome to email management with Groq!", res.Messages[1].Text)
	})

	t.Run("draft email", func(t *testing.T) {
		res, err := d.GetPrompt(ctx, PromptDraftEmail, map[string]string{
			ArgContent:        "the offsite",
			ArgRecipient:      "Sam",
			ArgRecipientEmail: "sam@example.com",
		})
		require.NoError(t, err)
		require.Len(t, res.Messages, 2)
		assert.Equal(t, "Please draft an email about the offsite for Sam (sam@example.com).", res.Messages[0].Text)
		assert.True(t, strings.HasPrefix(res.Messages[1].Text, "AI: Draft an email about the offsite for Sam (sam@example.com)."))
		assert.True(t, strings.HasSuffix(res.Messages[1].Text, "\n\nWhat do you think of this draft?"))
	})

	t.Run("edit draft", func(t *testing.T) {
		res, err := d.GetPrompt(ctx, PromptEditDraft, map[string]string{
			ArgChanges:      "shorter",
			ArgCurrentDraft: "Hello there",
		})
		require.NoError(t, err)
		assert.Equal(t, "Please revise the current email draft:\nHello there\n\nRequested changes:\nshorter", res.Messages[0].Text)
		assert.Equal(t, "AI: Edit this draft: Hello there with changes: shorter", res.Messages[1].Text)
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := d.GetPrompt(ctx, PromptDraftEmail, map[string]string{ArgContent: "x"})
		require.Error(t, err)
		assert.True(t, apierror.IsBadRequest(err))
		assert.Equal(t, "Missing required arguments: recipient, recipient_email", err.Error())
	})

	t.Run("unknown prompt", func(t *testing.T) {
		_, err := d.GetPrompt(ctx, "nope", nil)
		require.Error(t, err)
		assert.Equal(t, "Prompt not found: nope", err.Error())
	})

	t.Run("generator failure", func(t *testing.T) {
		boom := errors.New("boom")
		failing := New(llm.Func(func(context.Context, string) (string, error) { return "", boom }), nil)
		_, err := failing.GetPrompt(ctx, PromptManageEmail, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCallTool_MissingParametersSkipsService(t *testing.T) {
	d := New(echo(), nil)
	svc := mailtest.New("google")

	_, err := d.CallTool(context.Background(), svc, ToolSendEmail, map[string]any{ArgSubject: "hi"})
	require.Error(t, err)
	assert.True(t, apierror.IsBadRequest(err))
	assert.Equal(t, "Missing required parameters: recipient_id, message", err.Error())
	assert.Empty(t, svc.Calls())
}

func TestCallTool_UnknownTool(t *testing.T) {
	d := New(echo(), nil)
	_, err := d.CallTool(context.Background(), mailtest.New("google"), "delete-everything", nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown tool: delete-everything", err.Error())
}

func TestCallTool(t *testing.T) {
	ctx := context.Background()
	email := &mail.Email{Content: "Quarterly numbers", Subject: "Q3", From: "a@example.com", To: "b@example.com"}

	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		setup     func(*mailtest.Fake)
		wantText  string
		wantType  string
		wantCalls []mailtest.Call
	}{
		{
			name:      "send success",
			tool:      ToolSendEmail,
			args:      map[string]any{ArgRecipientID: "b@example.com", ArgSubject: "Hi", ArgMessage: "Body"},
			wantText:  "Email sent successfully. Message ID: sent-1",
			wantCalls: []mailtest.Call{{Method: "SendEmail", Args: []string{"b@example.com", "Hi", "Body"}}},
		},
		{
			name:     "send failure",
			tool:     ToolSendEmail,
			args:     map[string]any{ArgRecipientID: "b@example.com", ArgSubject: "Hi", ArgMessage: "Body"},
			setup:    func(f *mailtest.Fake) { f.SendResult = mail.SendFailure(errors.New("quota exceeded")) },
			wantText: "Failed to send email: quota exceeded",
		},
		{
			name:      "reply success",
			tool:      ToolReplyToEmail,
			args:      map[string]any{ArgEmailID: "m1", ArgMessage: "Thanks"},
			wantText:  "Reply sent successfully. Message ID: reply-1",
			wantCalls: []mailtest.Call{{Method: "ReplyToEmail", Args: []string{"m1", "Thanks"}}},
		},
		{
			name:     "reply failure",
			tool:     ToolReplyToEmail,
			args:     map[string]any{ArgEmailID: "m1", ArgMessage: "Thanks"},
			setup:    func(f *mailtest.Fake) { f.ReplyResult = mail.SendFailure(errors.New("gone")) },
			wantText: "Failed to send reply: gone",
		},
		{
			name: "unread",
			tool: ToolGetUnreadEmails,
			setup: func(f *mailtest.Fake) {
				f.UnreadResult = mail.Listed([]mail.MessageRef{{ID: "m1", ThreadID: "t1"}})
			},
			wantText: `[{"id":"m1","threadId":"t1"}]`,
			wantType: ArtifactJSON,
		},
		{
			name:     "unread empty",
			tool:     ToolGetUnreadEmails,
			wantText: `[]`,
			wantType: ArtifactJSON,
		},
		{
			name:     "unread failure",
			tool:     ToolGetUnreadEmails,
			setup:    func(f *mailtest.Fake) { f.UnreadResult = mail.ListFailure(errors.New("offline")) },
			wantText: "An error occurred: offline",
		},
		{
			name:      "search",
			tool:      ToolSearchEmails,
			args:      map[string]any{ArgQuery: "invoice"},
			setup:     func(f *mailtest.Fake) { f.SearchResult = mail.Listed([]mail.MessageRef{{ID: "m2"}}) },
			wantText:  `[{"id":"m2"}]`,
			wantType:  ArtifactJSON,
			wantCalls: []mailtest.Call{{Method: "SearchEmails", Args: []string{"invoice"}}},
		},
		{
			name:     "read",
			tool:     ToolReadEmail,
			args:     map[string]any{ArgEmailID: "m1"},
			setup:    func(f *mailtest.Fake) { f.ReadResults["m1"] = mail.Read(email) },
			wantText: `{"content":"Quarterly numbers","subject":"Q3","from":"a@example.com","to":"b@example.com","date":""}`,
			wantType: ArtifactDictionary,
		},
		{
			name:     "read failure",
			tool:     ToolReadEmail,
			args:     map[string]any{ArgEmailID: "missing"},
			wantText: "An error occurred: message not found",
		},
		{
			name:      "trash",
			tool:      ToolTrashEmail,
			args:      map[string]any{ArgEmailID: "m1"},
			wantText:  mail.MsgTrashed,
			wantCalls: []mailtest.Call{{Method: "TrashEmail", Args: []string{"m1"}}},
		},
		{
			name:     "archive",
			tool:     ToolArchiveEmail,
			args:     map[string]any{ArgEmailID: "m1"},
			wantText: mail.MsgArchived,
		},
		{
			name:     "mark read",
			tool:     ToolMarkEmailAsRead,
			args:     map[string]any{ArgEmailID: "m1"},
			wantText: mail.MsgMarkedRead,
		},
		{
			name:     "open",
			tool:     ToolOpenEmail,
			args:     map[string]any{ArgEmailID: "m1"},
			wantText: mail.OpenAt("https://mail.example.com/m1"),
		},
		{
			name:      "numeric email id",
			tool:      ToolTrashEmail,
			args:      map[string]any{ArgEmailID: 42},
			wantText:  mail.MsgTrashed,
			wantCalls: []mailtest.Call{{Method: "TrashEmail", Args: []string{"42"}}},
		},
		{
			name:     "summarize",
			tool:     ToolSummarizeEmail,
			args:     map[string]any{ArgEmailID: "m1"},
			setup:    func(f *mailtest.Fake) { f.ReadResults["m1"] = mail.Read(email) },
			wantText: "AI: Summarize this email content: Quarterly numbers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mailtest.New("google")
			if tt.setup != nil {
				tt.setup(svc)
			}
			res, err := New(echo(), nil).CallTool(ctx, svc, tt.tool, tt.args)
			require.NoError(t, err)
			assert.Equal(t, "text", res.Type)
			assert.Equal(t, tt.wantText, res.Text)
			if tt.wantType == "" {
				assert.Nil(t, res.Artifact)
			} else {
				require.NotNil(t, res.Artifact)
				assert.Equal(t, tt.wantType, res.Artifact.Type)
			}
			if tt.wantCalls != nil {
				assert.Equal(t, tt.wantCalls, svc.Calls())
			}
		})
	}
}

func TestCallTool_SummarizeReadFailure(t *testing.T) {
	d := New(echo(), nil)
	_, err := d.CallTool(context.Background(), mailtest.New("google"), ToolSummarizeEmail, map[string]any{ArgEmailID: "missing"})
	require.Error(t, err)
	assert.Equal(t, 500, apierror.StatusOf(err))
}

func TestCheckTool(t *testing.T) {
	d := New(echo(), nil)
	assert.NoError(t, d.CheckTool(ToolGetUnreadEmails, nil))
	assert.NoError(t, d.CheckTool(ToolSearchEmails, map[string]any{ArgQuery: "from:ada"}))

	err := d.CheckTool(ToolSearchEmails, map[string]any{ArgQuery: ""})
	assert.EqualError(t, err, "Missing required parameters: query")

	err = d.CheckTool("nope", nil)
	assert.True(t, apierror.IsBadRequest(err))
}
