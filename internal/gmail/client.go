package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mail"
)

// ProviderName is reported by Service.Provider.
const ProviderName = "gmail"

const (
	unreadQuery = "in:inbox is:unread category:primary"
	labelUnread = "UNREAD"
	labelInbox  = "INBOX"
	openURL     = "https://mail.google.com/mail/u/0/#inbox/"
)

// Service is a mail.Service for one Gmail account.
type Service struct {
	users  *gmail.UsersService
	from   string
	logger *slog.Logger
	now    func() time.Time
}

var _ mail.Service = (*Service)(nil)

// NewService creates a Gmail service sending as from and authenticated by ts.
// Extra client options are passed to the Gmail API client.
func NewService(ctx context.Context, from string, ts oauth2.TokenSource, logger *slog.Logger, opts ...option.ClientOption) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Service{
		users:  svc.Users,
		from:   from,
		logger: logging.WithProvider(logger, ProviderName),
		now:    time.Now,
	}, nil
}

// Provider implements mail.Service.
func (s *Service) Provider() string { return ProviderName }

func (s *Service) fail(op string, err error) {
	s.logger.Warn("gmail operation failed", logging.Operation(op), logging.Err(err))
}

// SendEmail implements mail.Service.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	msg := &outgoing{From: s.from, To: to, Subject: subject, Body: body, Attachments: attachments}
	if err := msg.validate(); err != nil {
		s.fail("send_email", err)
		return mail.SendFailure(err)
	}
	sent, err := s.users.Messages.Send("me", &gmail.Message{Raw: msg.raw(s.now())}).Context(ctx).Do()
	if err != nil {
		s.fail("send_email", err)
		return mail.SendFailure(err)
	}

	s.logger.Debug("sent email", logging.MessageID(sent.Id))
	return mail.Sent(sent.Id)
}

// GetUnreadEmails implements mail.Service.
func (s *Service) GetUnreadEmails(ctx context.Context) mail.ListResult {
	return s.list(ctx, "get_unread_emails", unreadQuery)
}

// SearchEmails implements mail.Service.
func (s *Service) SearchEmails(ctx context.Context, query string) mail.ListResult {
	return s.list(ctx, "search_emails", query)
}

func (s *Service) list(ctx context.Context, op, q string) mail.ListResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	res, err := s.users.Messages.List("me").Q(q).Context(ctx).Do()
	if err != nil {
		s.fail(op, err)
		return mail.ListFailure(err)
	}

	refs := make([]mail.MessageRef, 0, len(res.Messages))
	for _, m := range res.Messages {
		refs = append(refs, mail.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return mail.Listed(refs)
}

// ReadEmail implements mail.Service.
func (s *Service) ReadEmail(ctx context.Context, id string) mail.ReadResult {
	callCtx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	msg, err := s.users.Messages.Get("me", id).Format("full").Context(callCtx).Do()
	if err != nil {
		s.fail("read_email", err)
		return mail.ReadFailure(err)
	}

	body, err := plainTextBody(msg)
	if err != nil {
		s.fail("read_email", err)
		return mail.ReadFailure(err)
	}

	s.MarkEmailAsRead(ctx, id)

	return mail.Read(&mail.Email{
		Content: body,
		Subject: HeaderValue(msg, "Subject"),
		From:    HeaderValue(msg, "From"),
		To:      HeaderValue(msg, "To"),
		Date:    HeaderValue(msg, "Date"),
	})
}

// TrashEmail implements mail.Service.
func (s *Service) TrashEmail(ctx context.Context, id string) string {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	if _, err := s.users.Messages.Trash("me", id).Context(ctx).Do(); err != nil {
		s.fail("trash_email", err)
		return mail.Failed(err)
	}
	return mail.MsgTrashed
}

// ArchiveEmail implements mail.Service.
func (s *Service) ArchiveEmail(ctx context.Context, id string) string {
	if err := s.removeLabel(ctx, id, labelInbox); err != nil {
		s.fail("archive_email", err)
		return mail.Failed(err)
	}
	return mail.MsgArchived
}

// MarkEmailAsRead implements mail.Service.
func (s *Service) MarkEmailAsRead(ctx context.Context, id string) string {
	if err := s.removeLabel(ctx, id, labelUnread); err != nil {
		s.fail("mark_email_as_read", err)
		return mail.Failed(err)
	}
	return mail.MsgMarkedRead
}

func (s *Service) removeLabel(ctx context.Context, id, label string) error {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	_, err := s.users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{label},
	}).Context(ctx).Do()
	return err
}

// OpenEmail implements mail.Service. The URL is derived from the id alone.
func (s *Service) OpenEmail(_ context.Context, id string) string {
	return mail.OpenAt(openURL + id)
}

// ReplyToEmail implements mail.Service. The reply goes to the original
// sender within the original thread.
func (s *Service) ReplyToEmail(ctx context.Context, id, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	orig, err := s.users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(fmt.Errorf("failed to get original message: %w", err))
	}

	msg := &outgoing{
		From:        s.from,
		To:          HeaderValue(orig, "From"),
		Subject:     mail.ReplySubject(HeaderValue(orig, "Subject")),
		Body:        body,
		InReplyTo:   HeaderValue(orig, "Message-ID"),
		Attachments: attachments,
	}
	if err := msg.validate(); err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}

	sent, err := s.users.Messages.Send("me", &gmail.Message{
		Raw:      msg.raw(s.now()),
		ThreadId: orig.ThreadId,
	}).Context(ctx).Do()
	if err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}

	s.logger.Debug("sent reply", logging.MessageID(sent.Id))
	return mail.Sent(sent.Id)
}
