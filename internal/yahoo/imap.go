package yahoo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
)

// Yahoo server endpoints
const (
	DefaultIMAPAddr = "imap.mail.yahoo.com:993"
	DefaultSMTPAddr = "smtp.mail.yahoo.com:465"
)

const inbox = "INBOX"

// Message is a fetched message with its envelope and raw RFC 5322 bytes.
type Message struct {
	Envelope *imap.Envelope
	Raw      []byte
}

// Session is one authenticated IMAP connection with INBOX selected.
type Session interface {
	Search(criteria *imap.SearchCriteria) ([]imap.UID, error)
	Envelopes(uids []imap.UID) (map[imap.UID]*imap.Envelope, error)
	Fetch(uid imap.UID) (*Message, error)
	AddFlags(uid imap.UID, flags ...imap.Flag) error
	Move(uid imap.UID, mailbox string) error
	// Close logs out and closes the connection.
	Close() error
}

// ErrAuthFailed marks IMAP and SMTP failures caused by a rejected token.
var ErrAuthFailed = errors.New("authentication failed")

// Dialer opens a new Session.
type Dialer func(ctx context.Context) (Session, error)

// OAuthBearer returns a SASL OAUTHBEARER client for username and token at addr.
func OAuthBearer(addr, username, token string) sasl.Client {
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: username,
		Token:    token,
		Host:     host,
		Port:     port,
	})
}

// IMAPDialer returns a Dialer connecting to addr over TLS.
func IMAPDialer(addr, username, token string) Dialer {
	return func(ctx context.Context) (Session, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid IMAP address %q: %w", addr, err)
		}

		d := &tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		client := imapclient.New(conn, nil)
		if err := client.Authenticate(OAuthBearer(addr, username, token)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("IMAP %w: %w", ErrAuthFailed, err)
		}

		if _, err := client.Select(inbox, nil).Wait(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("selecting INBOX: %w", err)
		}

		return &imapSession{c: client}, nil
	}
}

// imapSession adapts an imapclient.Client to Session.
type imapSession struct {
	c *imapclient.Client
}

func (s *imapSession) Search(criteria *imap.SearchCriteria) ([]imap.UID, error) {
	data, err := s.c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	return data.AllUIDs(), nil
}

func (s *imapSession) Envelopes(uids []imap.UID) (map[imap.UID]*imap.Envelope, error) {
	out := make(map[imap.UID]*imap.Envelope, len(uids))
	if len(uids) == 0 {
		return out, nil
	}

	bufs, err := s.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		UID:      true,
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}
	for _, buf := range bufs {
		out[buf.UID] = buf.Envelope
	}
	return out, nil
}

func (s *imapSession) Fetch(uid imap.UID) (*Message, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	bufs, err := s.c.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching message: %w", err)
	}
	if len(bufs) == 0 {
		return nil, errors.New("email not found")
	}
	return &Message{
		Envelope: bufs[0].Envelope,
		Raw:      bufs[0].FindBodySection(section),
	}, nil
}

func (s *imapSession) AddFlags(uid imap.UID, flags ...imap.Flag) error {
	err := s.c.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  flags,
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("storing flags: %w", err)
	}
	return nil
}

func (s *imapSession) Move(uid imap.UID, mailbox string) error {
	if _, err := s.c.Move(imap.UIDSetNum(uid), mailbox).Wait(); err != nil {
		return fmt.Errorf("moving message to %s: %w", mailbox, err)
	}
	return nil
}

func (s *imapSession) Close() error {
	_ = s.c.Logout().Wait()
	return s.c.Close()
}

// parseUID converts a message id to an IMAP UID.
func parseUID(id string) (imap.UID, error) {
	uid, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid email UID %q", id)
	}
	return imap.UID(uid), nil
}

// formatDate renders an envelope date the way mail clients display it.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123Z)
}
