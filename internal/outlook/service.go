package outlook

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mail"
)

// ProviderName is reported by Service.Provider.
const ProviderName = "outlook"

// Well-known Graph folder ids
const (
	folderDeletedItems = "deleteditems"
	folderArchive      = "archive"
)

// Service is a mail.Service for one Microsoft account.
type Service struct {
	c *client
}

var _ mail.Service = (*Service)(nil)

// Option configures a Service.
type Option func(*client)

// WithBaseURL overrides the Graph endpoint.
func WithBaseURL(u string) Option { return func(c *client) { c.baseURL = u } }

// WithHTTPClient sets the HTTP client used for Graph calls.
func WithHTTPClient(hc *http.Client) Option { return func(c *client) { c.http = hc } }

// WithRefresh enables one refresh-and-retry on 401 responses.
func WithRefresh(fn RefreshFunc) Option { return func(c *client) { c.refresh = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *client) { c.logger = l } }

// NewService creates an Outlook service using accessToken.
func NewService(accessToken string, opts ...Option) *Service {
	c := &client{
		baseURL: DefaultBaseURL,
		http:    defaultHTTPClient,
		token:   accessToken,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithProvider(c.logger, ProviderName)
	return &Service{c: c}
}

// Provider implements mail.Service.
func (s *Service) Provider() string { return ProviderName }

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes []byte `json:"contentBytes"`
}

type outgoingMessage struct {
	Subject      string           `json:"subject,omitempty"`
	Body         *itemBody        `json:"body,omitempty"`
	ToRecipients []recipient      `json:"toRecipients,omitempty"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
}

type message struct {
	ID               string      `json:"id"`
	ConversationID   string      `json:"conversationId"`
	Subject          string      `json:"subject"`
	Body             itemBody    `json:"body"`
	From             *recipient  `json:"from"`
	ToRecipients     []recipient `json:"toRecipients"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	WebLink          string      `json:"webLink"`
}

type messageList struct {
	Value []message `json:"value"`
}

// toAttachments maps attachments to Graph file attachments. contentBytes is
// base64 on the wire, which encoding/json produces for []byte.
func toAttachments(in []mail.Attachment) []fileAttachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]fileAttachment, 0, len(in))
	for _, a := range in {
		out = append(out, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Filename,
			ContentType:  a.ContentType(),
			ContentBytes: a.Content,
		})
	}
	return out
}

func (s *Service) fail(op string, err error) {
	l := logging.WithOperation(s.c.logger, op)
	if isUnauthorized(err) {
		l.Warn("graph rejected the access token", logging.Err(err))
		return
	}
	l.Warn("graph operation failed", logging.Err(err))
}

// SendEmail implements mail.Service. Graph does not return an id for sent
// mail, so the result carries none.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	req := map[string]any{
		"message": outgoingMessage{
			Subject:      subject,
			Body:         &itemBody{ContentType: "Text", Content: body},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: to}}},
			Attachments:  toAttachments(attachments),
		},
	}
	if err := s.c.do(ctx, http.MethodPost, "/me/sendMail", nil, req, nil); err != nil {
		s.fail("send_email", err)
		return mail.SendFailure(err)
	}
	return mail.SendResult{Status: mail.StatusSuccess}
}

// GetUnreadEmails implements mail.Service.
func (s *Service) GetUnreadEmails(ctx context.Context) mail.ListResult {
	q := url.Values{"$filter": {"isRead eq false"}}
	return s.list(ctx, "get_unread_emails", "/me/mailFolders/inbox/messages", q)
}

// SearchEmails implements mail.Service.
func (s *Service) SearchEmails(ctx context.Context, query string) mail.ListResult {
	q := url.Values{"$search": {searchPhrase(query)}}
	return s.list(ctx, "search_emails", "/me/messages", q)
}

// searchPhrase quotes query as a single $search phrase. Inner quotes and
// backslashes are escaped so they cannot end the phrase early.
func searchPhrase(query string) string {
	return `"` + searchEscaper.Replace(query) + `"`
}

var searchEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (s *Service) list(ctx context.Context, op, path string, q url.Values) mail.ListResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	var res messageList
	if err := s.c.do(ctx, http.MethodGet, path, q, nil, &res); err != nil {
		s.fail(op, err)
		return mail.ListFailure(err)
	}

	refs := make([]mail.MessageRef, 0, len(res.Value))
	for _, m := range res.Value {
		refs = append(refs, mail.MessageRef{ID: m.ID, ThreadID: m.ConversationID})
	}
	return mail.Listed(refs)
}

func (s *Service) get(ctx context.Context, id string) (*message, error) {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	var m message
	if err := s.c.do(ctx, http.MethodGet, messagePath(id), nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadEmail implements mail.Service.
func (s *Service) ReadEmail(ctx context.Context, id string) mail.ReadResult {
	m, err := s.get(ctx, id)
	if err != nil {
		s.fail("read_email", err)
		return mail.ReadFailure(err)
	}

	s.MarkEmailAsRead(ctx, id)

	e := &mail.Email{
		Content: m.Body.Content,
		Subject: m.Subject,
		Date:    m.ReceivedDateTime,
	}
	if m.From != nil {
		e.From = m.From.EmailAddress.Address
	}
	if len(m.ToRecipients) > 0 {
		e.To = m.ToRecipients[0].EmailAddress.Address
	}
	return mail.Read(e)
}

// TrashEmail implements mail.Service.
func (s *Service) TrashEmail(ctx context.Context, id string) string {
	if err := s.move(ctx, id, folderDeletedItems); err != nil {
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

func (s *Service) move(ctx context.Context, id, folder string) error {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()
	return s.c.do(ctx, http.MethodPost, messagePath(id, "/move"), nil, map[string]string{"destinationId": folder}, nil)
}

// MarkEmailAsRead implements mail.Service.
func (s *Service) MarkEmailAsRead(ctx context.Context, id string) string {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	if err := s.c.do(ctx, http.MethodPatch, messagePath(id), nil, map[string]bool{"isRead": true}, nil); err != nil {
		s.fail("mark_email_as_read", err)
		return mail.Failed(err)
	}
	return mail.MsgMarkedRead
}

// OpenEmail implements mail.Service using the message's webLink.
func (s *Service) OpenEmail(ctx context.Context, id string) string {
	m, err := s.get(ctx, id)
	if err != nil {
		s.fail("open_email", err)
		return mail.Failed(err)
	}
	return mail.OpenAt(m.WebLink)
}

// ReplyToEmail implements mail.Service. A reply draft is created with the
// body as its comment, then sent. The draft id is returned as message id.
func (s *Service) ReplyToEmail(ctx context.Context, id, body string, attachments []mail.Attachment) mail.SendResult {
	ctx, cancel := mail.WithTimeout(ctx)
	defer cancel()

	req := map[string]any{"comment": body}
	if atts := toAttachments(attachments); atts != nil {
		req["message"] = outgoingMessage{Attachments: atts}
	}

	var draft message
	if err := s.c.do(ctx, http.MethodPost, messagePath(id, "/createReply"), nil, req, &draft); err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}
	if err := s.c.do(ctx, http.MethodPost, messagePath(draft.ID, "/send"), nil, nil, nil); err != nil {
		s.fail("reply_to_email", err)
		return mail.SendFailure(err)
	}
	return mail.Sent(draft.ID)
}
