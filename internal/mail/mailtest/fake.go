// Package mailtest provides a scripted mail.Service for tests.
package mailtest

import (
	"context"
	"sync"

	"github.com/teemow/inboxpilot/internal/mail"
)

// Call records one invocation on a Fake.
type Call struct {
	Method string
	Args   []string
}

// Fake is a mail.Service returning canned results.
type Fake struct {
	Name string

	SendResult    mail.SendResult
	ReplyResult   mail.SendResult
	UnreadResult  mail.ListResult
	SearchResult  mail.ListResult
	ReadResults   map[string]mail.ReadResult
	StatusResults map[string]string

	mu    sync.Mutex
	calls []Call
}

var _ mail.Service = (*Fake)(nil)

// New returns a Fake named provider that succeeds by default.
func New(provider string) *Fake {
	return &Fake{
		Name:          provider,
		SendResult:    mail.Sent("sent-1"),
		ReplyResult:   mail.Sent("reply-1"),
		UnreadResult:  mail.Listed(nil),
		SearchResult:  mail.Listed(nil),
		ReadResults:   map[string]mail.ReadResult{},
		StatusResults: map[string]string{},
	}
}

// Calls returns the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fake) record(method string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

func (f *Fake) status(method, fallback string) string {
	if s, ok := f.StatusResults[method]; ok {
		return s
	}
	return fallback
}

func (f *Fake) Provider() string { return f.Name }

func (f *Fake) SendEmail(_ context.Context, to, subject, body string, _ []mail.Attachment) mail.SendResult {
	f.record("SendEmail", to, subject, body)
	return f.SendResult
}

func (f *Fake) GetUnreadEmails(context.Context) mail.ListResult {
	f.record("GetUnreadEmails")
	return f.UnreadResult
}

func (f *Fake) ReadEmail(_ context.Context, id string) mail.ReadResult {
	f.record("ReadEmail", id)
	if r, ok := f.ReadResults[id]; ok {
		return r
	}
	return mail.ReadResult{Error: "An error occurred: message not found"}
}

func (f *Fake) TrashEmail(_ context.Context, id string) string {
	f.record("TrashEmail", id)
	return f.status("TrashEmail", mail.MsgTrashed)
}

func (f *Fake) ArchiveEmail(_ context.Context, id string) string {
	f.record("ArchiveEmail", id)
	return f.status("ArchiveEmail", mail.MsgArchived)
}

func (f *Fake) MarkEmailAsRead(_ context.Context, id string) string {
	f.record("MarkEmailAsRead", id)
	return f.status("MarkEmailAsRead", mail.MsgMarkedRead)
}

func (f *Fake) OpenEmail(_ context.Context, id string) string {
	f.record("OpenEmail", id)
	return f.status("OpenEmail", mail.OpenAt("https://mail.example.com/"+id))
}

func (f *Fake) SearchEmails(_ context.Context, query string) mail.ListResult {
	f.record("SearchEmails", query)
	return f.SearchResult
}

func (f *Fake) ReplyToEmail(_ context.Context, id, body string, _ []mail.Attachment) mail.SendResult {
	f.record("ReplyToEmail", id, body)
	return f.ReplyResult
}
