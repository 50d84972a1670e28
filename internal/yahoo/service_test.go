package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/mail"
)

type fakeSession struct {
	mu       sync.Mutex
	messages map[imap.UID]*Message
	seen     map[imap.UID]bool
	moved    map[imap.UID]string
	criteria []*imap.SearchCriteria
	closed   int
	err      error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messages: map[imap.UID]*Message{},
		seen:     map[imap.UID]bool{},
		moved:    map[imap.UID]string{},
	}
}

func (f *fakeSession) Search(criteria *imap.SearchCriteria) ([]imap.UID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.criteria = append(f.criteria, criteria)
	var uids []imap.UID
	for uid := imap.UID(1); uid <= imap.UID(len(f.messages)); uid++ {
		if _, ok := f.messages[uid]; !ok {
			continue
		}
		if len(criteria.NotFlag) > 0 && f.seen[uid] {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeSession) Envelopes(uids []imap.UID) (map[imap.UID]*imap.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[imap.UID]*imap.Envelope{}
	for _, uid := range uids {
		out[uid] = f.messages[uid].Envelope
	}
	return out, nil
}

func (f *fakeSession) Fetch(uid imap.UID) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.messages[uid]
	if !ok {
		return nil, errors.New("email not found")
	}
	return m, nil
}

func (f *fakeSession) AddFlags(uid imap.UID, flags ...imap.Flag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, fl := range flags {
		if fl == imap.FlagSeen {
			f.seen[uid] = true
		}
	}
	return nil
}

func (f *fakeSession) Move(uid imap.UID, mailbox string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.moved[uid] = mailbox
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type sentMessage struct {
	From string
	To   []string
	Msg  []byte
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, from string, to []string, msg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{From: from, To: to, Msg: msg})
	return nil
}

const rawWelcome = "From: Alice <alice@example.com>\r\n" +
	"To: bob@yahoo.com\r\n" +
	"Subject: Welcome\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
	"Message-ID: <welcome-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob\r\n"

func newTestService(t *testing.T) (*Service, *fakeSession, *fakeSender) {
	t.Helper()
	sess := newFakeSession()
	sess.messages[1] = &Message{
		Envelope: &imap.Envelope{
			Subject:   "Welcome",
			MessageID: "welcome-1@example.com",
			From:      []imap.Address{{Name: "Alice", Mailbox: "alice", Host: "example.com"}},
			To:        []imap.Address{{Mailbox: "bob", Host: "yahoo.com"}},
		},
		Raw: []byte(rawWelcome),
	}
	sess.messages[2] = &Message{
		Envelope: &imap.Envelope{
			Subject:   "Re: Lunch",
			MessageID: "lunch-2@example.com",
			InReplyTo: []string{"lunch-1@example.com"},
			From:      []imap.Address{{Mailbox: "carol", Host: "example.com"}},
		},
	}

	sender := &fakeSender{}
	dial := func(context.Context) (Session, error) { return sess, nil }
	svc := NewService("bob@yahoo.com", "token", WithDialer(dial), WithSender(sender))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, sess, sender
}

func TestService_Provider(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Equal(t, "yahoo", svc.Provider())
}

func TestService_GetUnreadEmails(t *testing.T) {
	svc, sess, _ := newTestService(t)
	sess.seen[1] = true

	res := svc.GetUnreadEmails(context.Background())
	require.Empty(t, res.Error)
	require.Len(t, res.Emails, 1)
	assert.Equal(t, "2", res.Emails[0].ID)
	assert.Equal(t, "lunch-1@example.com", res.Emails[0].ThreadID)
	assert.Equal(t, []imap.Flag{imap.FlagSeen}, sess.criteria[0].NotFlag)
	assert.Equal(t, 1, sess.closed)
}

func TestService_SearchEmails(t *testing.T) {
	svc, sess, _ := newTestService(t)

	res := svc.SearchEmails(context.Background(), "lunch")
	require.Empty(t, res.Error)
	assert.Len(t, res.Emails, 2)
	assert.Equal(t, "welcome-1@example.com", res.Emails[0].ThreadID)
	assert.Equal(t, []string{"lunch"}, sess.criteria[0].Text)
}

func TestService_ListError(t *testing.T) {
	svc, sess, _ := newTestService(t)
	sess.err = errors.New("connection reset")

	res := svc.GetUnreadEmails(context.Background())
	assert.Empty(t, res.Emails)
	assert.Equal(t, "An error occurred: connection reset", res.Error)
}

func TestService_DialError(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.dial = func(context.Context) (Session, error) { return nil, errors.New("IMAP authentication failed") }

	assert.Equal(t, "An error occurred: IMAP authentication failed", svc.TrashEmail(context.Background(), "1"))
}

func TestService_ReadEmail(t *testing.T) {
	svc, sess, _ := newTestService(t)

	res := svc.ReadEmail(context.Background(), "1")
	require.Empty(t, res.Error)
	require.NotNil(t, res.Email)
	assert.Equal(t, "Hello Bob\r\n", res.Email.Content)
	assert.Equal(t, "Welcome", res.Email.Subject)
	assert.Equal(t, "alice@example.com", res.Email.From)
	assert.Equal(t, "bob@yahoo.com", res.Email.To)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 +0000", res.Email.Date)
	assert.True(t, sess.seen[1], "reading marks the message seen")
}

func TestService_ReadEmailFallsBackToEnvelope(t *testing.T) {
	svc, _, _ := newTestService(t)

	res := svc.ReadEmail(context.Background(), "2")
	require.Empty(t, res.Error)
	assert.Equal(t, "Re: Lunch", res.Email.Subject)
	assert.Equal(t, "carol@example.com", res.Email.From)
}

func TestService_ReadEmailErrors(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		id   string
		want string
	}{
		{id: "abc", want: `An error occurred: invalid email UID "abc"`},
		{id: "0", want: `An error occurred: invalid email UID "0"`},
		{id: "99", want: "An error occurred: email not found"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := svc.ReadEmail(context.Background(), tt.id)
			assert.Nil(t, res.Email)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestService_TrashAndArchive(t *testing.T) {
	svc, sess, _ := newTestService(t)

	assert.Equal(t, mail.MsgTrashed, svc.TrashEmail(context.Background(), "1"))
	assert.Equal(t, mail.MsgArchived, svc.ArchiveEmail(context.Background(), "2"))
	assert.Equal(t, "Trash", sess.moved[1])
	assert.Equal(t, "Archive", sess.moved[2])
}

func TestService_MarkEmailAsRead(t *testing.T) {
	svc, sess, _ := newTestService(t)

	assert.Equal(t, mail.MsgMarkedRead, svc.MarkEmailAsRead(context.Background(), "2"))
	assert.True(t, sess.seen[2])
	assert.True(t, strings.HasPrefix(svc.MarkEmailAsRead(context.Background(), "x"), "An error occurred: "))
}

func TestService_OpenEmail(t *testing.T) {
	svc, sess, _ := newTestService(t)

	assert.Equal(t, "Email can be opened at: https://mail.yahoo.com/d/folders/1/messages/7", svc.OpenEmail(context.Background(), "7"))
	assert.Equal(t, 0, sess.closed, "open does not contact the server")
}

func TestService_SendEmail(t *testing.T) {
	svc, _, sender := newTestService(t)

	res := svc.SendEmail(context.Background(), "Alice <alice@example.com>", "Hi", "Body text", nil)
	require.True(t, res.OK(), res.ErrorMessage)
	assert.NotEmpty(t, res.MessageID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@yahoo.com", sender.sent[0].From)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].To)

	p := parseMessage(sender.sent[0].Msg)
	assert.Equal(t, "Hi", p.Subject)
	assert.Equal(t, "Body text", p.Text)
	assert.Equal(t, "alice@example.com", p.To)
}

func TestService_SendEmailFailure(t *testing.T) {
	svc, _, sender := newTestService(t)
	sender.err = errors.New("SMTP auth: 535 denied")

	res := svc.SendEmail(context.Background(), "alice@example.com", "Hi", "Body", nil)
	assert.Equal(t, mail.StatusError, res.Status)
	assert.Equal(t, "SMTP auth: 535 denied", res.ErrorMessage)
}

func TestService_ReplyToEmail(t *testing.T) {
	svc, _, sender := newTestService(t)

	res := svc.ReplyToEmail(context.Background(), "1", "Thanks!", nil)
	require.True(t, res.OK(), res.ErrorMessage)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].To)
	msg := string(sender.sent[0].Msg)
	assert.Contains(t, msg, "Subject: Re: Welcome")
	assert.Contains(t, msg, "In-Reply-To: <welcome-1@example.com>")
	assert.Contains(t, msg, "References: <welcome-1@example.com>")
}

func TestService_ReplyToMissingEmail(t *testing.T) {
	svc, _, sender := newTestService(t)

	res := svc.ReplyToEmail(context.Background(), "42", "Thanks!", nil)
	assert.Equal(t, mail.StatusError, res.Status)
	assert.Equal(t, "email not found", res.ErrorMessage)
	assert.Empty(t, sender.sent)
}

// tokenDialer accepts only the token named good.
func tokenDialer(sess Session, good string, seen *[]string) func(string) Dialer {
	return func(token string) Dialer {
		return func(context.Context) (Session, error) {
			*seen = append(*seen, token)
			if token != good {
				return nil, fmt.Errorf("IMAP %w: invalid token", ErrAuthFailed)
			}
			return sess, nil
		}
	}
}

func TestService_RefreshesOnIMAPAuthFailure(t *testing.T) {
	sess := newFakeSession()
	var dialed []string
	refreshes := 0

	svc := NewService("bob@yahoo.com", "expired",
		WithTokenDialer(tokenDialer(sess, "fresh", &dialed)),
		WithSender(&fakeSender{}),
		WithRefresh(func(context.Context) (string, error) {
			refreshes++
			return "fresh", nil
		}))

	assert.Equal(t, mail.MsgTrashed, svc.TrashEmail(context.Background(), "1"))
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, []string{"expired", "fresh"}, dialed)

	assert.Equal(t, mail.MsgArchived, svc.ArchiveEmail(context.Background(), "1"))
	assert.Equal(t, 1, refreshes, "the refreshed token is reused")
	assert.Equal(t, []string{"expired", "fresh", "fresh"}, dialed)
}

func TestService_RefreshesOnSMTPAuthFailure(t *testing.T) {
	good := &fakeSender{}
	var tokens []string

	svc := NewService("bob@yahoo.com", "expired",
		WithDialer(func(context.Context) (Session, error) { return newFakeSession(), nil }),
		WithTokenSender(func(token string) Sender {
			tokens = append(tokens, token)
			if token == "fresh" {
				return good
			}
			return &fakeSender{err: fmt.Errorf("SMTP auth: %w: 535 denied", ErrAuthFailed)}
		}),
		WithRefresh(func(context.Context) (string, error) { return "fresh", nil }))

	res := svc.SendEmail(context.Background(), "alice@example.com", "Hi", "Body", nil)
	require.True(t, res.OK(), res.ErrorMessage)
	assert.Len(t, good.sent, 1)
	assert.Equal(t, []string{"expired", "fresh"}, tokens)
}

func TestService_RefreshFailureIsReported(t *testing.T) {
	var dialed []string
	svc := NewService("bob@yahoo.com", "expired",
		WithTokenDialer(tokenDialer(newFakeSession(), "fresh", &dialed)),
		WithSender(&fakeSender{}),
		WithRefresh(func(context.Context) (string, error) {
			return "", errors.New("Authentication expired. Please re-authenticate with Yahoo.")
		}))

	got := svc.TrashEmail(context.Background(), "1")
	assert.Equal(t, "An error occurred: Authentication expired. Please re-authenticate with Yahoo.", got)
	assert.Equal(t, []string{"expired"}, dialed)
}

func TestService_NoRefreshForOtherErrors(t *testing.T) {
	refreshes := 0
	sender := &fakeSender{err: errors.New("SMTP RCPT TO: 550 no such user")}
	svc := NewService("bob@yahoo.com", "token",
		WithDialer(func(context.Context) (Session, error) { return newFakeSession(), nil }),
		WithSender(sender),
		WithRefresh(func(context.Context) (string, error) {
			refreshes++
			return "fresh", nil
		}))

	res := svc.SendEmail(context.Background(), "alice@example.com", "Hi", "Body", nil)
	assert.Equal(t, mail.StatusError, res.Status)
	assert.Equal(t, 0, refreshes)
}
