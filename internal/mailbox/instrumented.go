package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/mail"
)

// instrumented records a span and a provider-operation metric for every
// call on the wrapped service.
type instrumented struct {
	next    mail.Service
	metrics *instrumentation.Metrics
}

// Instrument wraps svc with metrics and tracing.
func Instrument(svc mail.Service, m *instrumentation.Metrics) mail.Service {
	return &instrumented{next: svc, metrics: m}
}

func (s *instrumented) start(ctx context.Context, op string) (context.Context, func(failure string)) {
	ctx, span := instrumentation.StartMailSpan(ctx, s.next.Provider(), op)
	began := time.Now()
	return ctx, func(failure string) {
		status := instrumentation.StatusSuccess
		var err error
		if failure != "" {
			status = instrumentation.StatusError
			err = errors.New(failure)
		}
		s.metrics.RecordMailOperation(ctx, s.next.Provider(), op, status, time.Since(began))
		instrumentation.EndSpan(span, err)
	}
}

func statusFailure(status string) string {
	if mail.IsFailure(status) {
		return status
	}
	return ""
}

func (s *instrumented) Provider() string { return s.next.Provider() }

func (s *instrumented) SendEmail(ctx context.Context, to, subject, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, done := s.start(ctx, "send_email")
	res := s.next.SendEmail(ctx, to, subject, body, attachments)
	done(res.ErrorMessage)
	return res
}

func (s *instrumented) GetUnreadEmails(ctx context.Context) mail.ListResult {
	ctx, done := s.start(ctx, "get_unread_emails")
	res := s.next.GetUnreadEmails(ctx)
	done(res.Error)
	return res
}

func (s *instrumented) ReadEmail(ctx context.Context, id string) mail.ReadResult {
	ctx, done := s.start(ctx, "read_email")
	res := s.next.ReadEmail(ctx, id)
	done(res.Error)
	return res
}

func (s *instrumented) TrashEmail(ctx context.Context, id string) string {
	ctx, done := s.start(ctx, "trash_email")
	res := s.next.TrashEmail(ctx, id)
	done(statusFailure(res))
	return res
}

func (s *instrumented) ArchiveEmail(ctx context.Context, id string) string {
	ctx, done := s.start(ctx, "archive_email")
	res := s.next.ArchiveEmail(ctx, id)
	done(statusFailure(res))
	return res
}

func (s *instrumented) MarkEmailAsRead(ctx context.Context, id string) string {
	ctx, done := s.start(ctx, "mark_email_as_read")
	res := s.next.MarkEmailAsRead(ctx, id)
	done(statusFailure(res))
	return res
}

func (s *instrumented) OpenEmail(ctx context.Context, id string) string {
	ctx, done := s.start(ctx, "open_email")
	res := s.next.OpenEmail(ctx, id)
	done(statusFailure(res))
	return res
}

func (s *instrumented) SearchEmails(ctx context.Context, query string) mail.ListResult {
	ctx, done := s.start(ctx, "search_emails")
	res := s.next.SearchEmails(ctx, query)
	done(res.Error)
	return res
}

func (s *instrumented) ReplyToEmail(ctx context.Context, id, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, done := s.start(ctx, "reply_to_email")
	res := s.next.ReplyToEmail(ctx, id, body, attachments)
	done(res.ErrorMessage)
	return res
}
