package yahoo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mail"
)

// ProviderName is reported by Service.Provider.
const ProviderName = "yahoo"

// Yahoo folder names
const (
	folderTrash   = "Trash"
	folderArchive = "Archive"
)

const webMessageURL = "https://mail.yahoo.com/d/folders/1/messages/"

// RefreshFunc returns a fresh access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Service is a mail.Service for one Yahoo account.
type Service struct {
	from    string
	imapFor func(token string) Dialer
	smtpFor func(token string) Sender
	refresh RefreshFunc
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	dial   Dialer
	sender Sender
}

var _ mail.Service = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithDialer replaces the IMAP dialer for every token.
func WithDialer(d Dialer) Option {
	return func(s *Service) { s.imapFor = func(string) Dialer { return d } }
}

// WithSender replaces the SMTP sender for every token.
func WithSender(snd Sender) Option {
	return func(s *Service) { s.smtpFor = func(string) Sender { return snd } }
}

// WithTokenDialer sets how an IMAP dialer is built for an access token.
func WithTokenDialer(fn func(token string) Dialer) Option {
	return func(s *Service) { s.imapFor = fn }
}

// WithTokenSender sets how an SMTP sender is built for an access token.
func WithTokenSender(fn func(token string) Sender) Option {
	return func(s *Service) { s.smtpFor = fn }
}

// WithRefresh enables one refresh-and-retry when IMAP or SMTP rejects the
// access token.
func WithRefresh(fn RefreshFunc) Option { return func(s *Service) { s.refresh = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a Yahoo service for the account email authenticated
// with accessToken.
func NewService(email, accessToken string, opts ...Option) *Service {
	s := &Service{
		from:    email,
		imapFor: func(tok string) Dialer { return IMAPDialer(DefaultIMAPAddr, email, tok) },
		smtpFor: func(tok string) Sender { return SMTPSender(DefaultSMTPAddr, email, tok) },
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithProvider(s.logger, ProviderName)
	s.use(accessToken)
	return s
}

// use switches the connections to token.
func (s *Service) use(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dial = s.imapFor(token)
	s.sender = s.smtpFor(token)
}

func (s *Service) current() (Dialer, Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dial, s.sender
}

// renew reports whether err is an authentication failure that a refreshed
// token can fix, refreshing the token if so. A failed refresh replaces err.
func (s *Service) renew(ctx context.Context, err error) (bool, error) {
	if s.refresh == nil || !errors.Is(err, ErrAuthFailed) {
		return false, err
	}
	token, rerr := s.refresh(ctx)
	if rerr != nil {
		s.logger.Warn("yahoo token refresh failed", logging.Err(rerr))
		return false, rerr
	}
	s.logger.Debug("retrying with refreshed yahoo token")
	s.use(token)
	return true, nil
}

// Provider implements mail.Service.
func (s *Service) Provider() string { return ProviderName }

func (s *Service) fail(op string, err error) {
	s.logger.Warn("yahoo operation failed", logging.Operation(op), logging.Err(err))
}

// session runs fn on a fresh connection that is always closed afterwards.
func (s *Service) session(ctx context.Context, fn func(Session) error) error {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	dial, _ := s.current()
	sess, err := dial(ctx)
	if retry, rerr := s.renew(ctx, err); retry {
		dial, _ = s.current()
		sess, err = dial(ctx)
	} else {
		err = rerr
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.Debug("closing IMAP session", logging.Err(cerr))
		}
	}()
	return fn(sess)
}

// SendEmail implements mail.Service.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string, attachments []mail.Attachment) mail.SendResult {
	id, err := s.submit(ctx, &draft{
		From:        s.from,
		To:          to,
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
	})
	if err != nil {
		s.fail("send_email", err)
		return mail.SendFailure(err)
	}
	return mail.Sent(id)
}

func (s *Service) submit(ctx context.Context, d *draft) (string, error) {
	msg, id, err := compose(d, s.now())
	if err != nil {
		return "", err
	}

	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	rcpt := parseAddress(d.To).Address
	_, sender := s.current()
	err = sender.Send(ctx, s.from, []string{rcpt}, msg)
	if retry, rerr := s.renew(ctx, err); retry {
		_, sender = s.current()
		err = sender.Send(ctx, s.from, []string{rcpt}, msg)
	} else {
		err = rerr
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetUnreadEmails implements mail.Service.
func (s *Service) GetUnreadEmails(ctx context.Context) mail.ListResult {
	return s.list(ctx, "get_unread_emails", &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	})
}

// SearchEmails implements mail.Service.
func (s *Service) SearchEmails(ctx context.Context, query string) mail.ListResult {
	return s.list(ctx, "search_emails", &imap.SearchCriteria{
		Text: []string{query},
	})
}

func (s *Service) list(ctx context.Context, op string, criteria *imap.SearchCriteria) mail.ListResult {
	var refs []mail.MessageRef
	err := s.session(ctx, func(sess Session) error {
		uids, err := sess.Search(criteria)
		if err != nil {
			return err
		}
		envs, err := sess.Envelopes(uids)
		if err != nil {
			return err
		}
		refs = make([]mail.MessageRef, 0, len(uids))
		for _, uid := range uids {
			refs = append(refs, mail.MessageRef{
				ID:       fmt.Sprint(uint32(uid)),
				ThreadID: threadID(envs[uid]),
			})
		}
		return nil
	})
	if err != nil {
		s.fail(op, err)
		return mail.ListFailure(err)
	}
	return mail.Listed(refs)
}

// threadID groups replies with the message they answer.
func threadID(env *imap.Envelope) string {
	if env == nil {
		return ""
	}
	if len(env.InReplyTo) > 0 {
		return env.InReplyTo[0]
	}
	return env.MessageID
}

func (s *Service) fetch(ctx context.Context, id string) (*Message, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}
	var msg *Message
	err = s.session(ctx, func(sess Session) error {
		msg, err = sess.Fetch(uid)
		return err
	})
	return msg, err
}

// ReadEmail implements mail.Service.
func (s *Service) ReadEmail(ctx context.Context, id string) mail.ReadResult {
	msg, err := s.fetch(ctx, id)
	if err != nil {
		s.fail("read_email", err)
		return mail.ReadFailure(err)
	}

	s.MarkEmailAsRead(ctx, id)

	p := parseMessage(msg.Raw)
	e := &mail.Email{
		Content: p.Text,
		Subject: p.Subject,
		From:    p.From,
		To:      p.To,
		Date:    p.Date,
	}
	if env := msg.Envelope; env != nil {
		if e.Subject == "" {
			e.Subject = env.Subject
		}
		if e.From == "" {
			e.From = firstAddr(env.From)
		}
		if e.To == "" {
			e.To = firstAddr(env.To)
		}
		if e.Date == "" {
			e.Date = formatDate(env.Date)
		}
	}
	return mail.Read(e)
}

func firstAddr(addrs []imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].Addr()
}

// TrashEmail implements mail.Service.
func (s *Service) TrashEmail(ctx context.Context, id string) string {
	if err := s.move(ctx, id, folderTrash); err != nil {
		s.fail("trash_email", err)
		return mail.Failed(err)
	}
	return mail.MsgTrashed
}

// ArchiveEmail implements mail.Service.
func (s *Service) ArchiveEmail(ctx context.Context, id string) string {
	if err := s.move(ctx, id, folderArchive); err != nil {
		s.fail("archive_email", err)
		return mail.Failed(err)
	}
	return mail.MsgArchived
}

func (s *Service) move(ctx context.Context, id, mailbox string) error {
	uid, err := parseUID(id)
	if err != nil {
		return err
	}
	return s.session(ctx, func(sess Session) error {
		return sess.Move(uid, mailbox)
	})
}

// MarkEmailAsRead implements mail.Service.
func (s *Service) MarkEmailAsRead(ctx context.Context, id string) string {
	uid, err := parseUID(id)
	if err == nil {
		err = s.session(ctx, func(sess Session) error {
			return sess.AddFlags(uid, imap.FlagSeen)
		})
	}
	if err != nil {
		s.fail("mark_email_as_read", err)
		return mail.Failed(err)
	}
	return mail.MsgMarkedRead
}

// OpenEmail implements mail.Service. The UID is validated but the server is
// not contacted.
func (s *Service) OpenEmail(_ context.Context, id string) string {
	if _, err := parseUID(id); err != nil {
		return mail.Failed(err)
	}
	return mail.OpenAt(webMessageURL + id)
}

// ReplyToEmail implements mail.Service.
func (s *Service) ReplyToEmail(ctx context.Context, id, body string, attachments []mail.Attachment) mail.SendResult {
	orig, err := s.fetch(ctx, id)
	if err == nil && orig.Envelope == nil {
		err = errors.New("original message has no envelope")
	}
	if err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}

	env := orig.Envelope
	to := firstAddr(env.ReplyTo)
	if to == "" {
		to = firstAddr(env.From)
	}

	sent, err := s.submit(ctx, &draft{
		From:        s.from,
		To:          to,
		Subject:     mail.ReplySubject(env.Subject),
		Body:        body,
		InReplyTo:   env.MessageID,
		Attachments: attachments,
	})
	if err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}
	return mail.Sent(sent)
}
