package yahoo

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/emersion/go-sasl"
)

// Sender submits a composed message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, from string, to []string, msg []byte) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, from string, to []string, msg []byte) error {
	return f(ctx, from, to, msg)
}

// saslAuth adapts a SASL client to smtp.Auth.
type saslAuth struct {
	c sasl.Client
}

func (a saslAuth) Start(*smtp.ServerInfo) (string, []byte, error) {
	return a.c.Start()
}

func (a saslAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	return a.c.Next(fromServer)
}

// SMTPSender returns a Sender that submits over implicit TLS to addr,
// authenticating with OAUTHBEARER.
func SMTPSender(addr, username, token string) Sender {
	return SenderFunc(func(ctx context.Context, from string, to []string, msg []byte) error {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid SMTP address %q: %w", addr, err)
		}

		d := &tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		client, err := smtp.NewClient(conn, host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("creating SMTP client: %w", err)
		}
		defer client.Close()

		if err := client.Auth(saslAuth{c: OAuthBearer(addr, username, token)}); err != nil {
			return fmt.Errorf("SMTP auth: %w: %w", ErrAuthFailed, err)
		}

		return deliver(client, from, to, msg)
	})
}

// deliver sends msg on an authenticated client and quits.
func deliver(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
