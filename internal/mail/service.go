package mail

import (
	"context"
	"strings"
	"time"
)

// Send statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status strings returned by mailbox mutations.
const (
	MsgTrashed    = "Email moved to trash successfully."
	MsgArchived   = "Email archived successfully."
	MsgMarkedRead = "Email marked as read."
	openPrefix    = "Email can be opened at: "
	errorPrefix   = "An error occurred: "
)

// DefaultCallTimeout bounds a single provider round trip.
const DefaultCallTimeout = 30 * time.Second

// Service is the set of mailbox operations every provider implements.
type Service interface {
	// Provider returns the provider name, e.g. "gmail".
	Provider() string

	SendEmail(ctx context.Context, to, subject, body string, attachments []Attachment) SendResult
	GetUnreadEmails(ctx context.Context) ListResult
	// ReadEmail returns the message and marks it read.
	ReadEmail(ctx context.Context, id string) ReadResult
	TrashEmail(ctx context.Context, id string) string
	ArchiveEmail(ctx context.Context, id string) string
	MarkEmailAsRead(ctx context.Context, id string) string
	OpenEmail(ctx context.Context, id string) string
	SearchEmails(ctx context.Context, query string) ListResult
	ReplyToEmail(ctx context.Context, id, body string, attachments []Attachment) SendResult
}

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
	MimeType string `json:"mimeType,omitempty"`
}

// ContentType returns MimeType or application/octet-stream when unset.
func (a Attachment) ContentType() string {
	if a.MimeType == "" {
		return "application/octet-stream"
	}
	return a.MimeType
}

// SendResult is the outcome of sending or replying.
type SendResult struct {
	Status       string `json:"status"`
	MessageID    string `json:"messageId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// OK reports whether the send succeeded.
func (r SendResult) OK() bool { return r.Status == StatusSuccess }

// MessageRef identifies a message and, when known, its thread.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
}

// ListResult is either a list of messages or an error string.
type ListResult struct {
	Emails []MessageRef
	Error  string
}

// Email is the readable content of one message.
type Email struct {
	Content string `json:"content"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Date    string `json:"date"`
}

// ReadResult is either an email or an error string.
type ReadResult struct {
	Email *Email
	Error string
}

// Sent returns a successful SendResult.
func Sent(messageID string) SendResult {
	return SendResult{Status: StatusSuccess, MessageID: messageID}
}

// SendFailure converts err into an error SendResult.
func SendFailure(err error) SendResult {
	return SendResult{Status: StatusError, ErrorMessage: err.Error()}
}

// Listed returns a successful ListResult. A nil slice becomes empty so it
// renders as [] rather than null.
func Listed(refs []MessageRef) ListResult {
	if refs == nil {
		refs = []MessageRef{}
	}
	return ListResult{Emails: refs}
}

// ListFailure converts err into a ListResult.
func ListFailure(err error) ListResult {
	return ListResult{Error: Failed(err)}
}

// Read returns a successful ReadResult.
func Read(e *Email) ReadResult {
	return ReadResult{Email: e}
}

// ReadFailure converts err into a ReadResult.
func ReadFailure(err error) ReadResult {
	return ReadResult{Error: Failed(err)}
}

// Failed renders err as a status string.
func Failed(err error) string {
	return errorPrefix + err.Error()
}

// IsFailure reports whether a status string was produced by Failed.
func IsFailure(status string) bool {
	return strings.HasPrefix(status, errorPrefix)
}

// OpenAt renders the status string for a browser URL.
func OpenAt(url string) string {
	return openPrefix + url
}

type timeoutKey struct{}

// ContextWithCallTimeout stores the per-call timeout used by WithTimeout.
func ContextWithCallTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, timeoutKey{}, d)
}

// WithTimeout derives a context bounded by the call timeout stored in ctx,
// or DefaultCallTimeout.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d, ok := ctx.Value(timeoutKey{}).(time.Duration)
	if !ok || d <= 0 {
		d = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, d)
}

// StripReply removes one leading "Re:" prefix, case-insensitively.
func StripReply(subject string) string {
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return strings.TrimLeft(subject[3:], " ")
	}
	return subject
}

// ReplySubject returns "Re: " followed by subject without its reply prefix.
func ReplySubject(subject string) string {
	return "Re: " + StripReply(subject)
}
