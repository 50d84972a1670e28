package gmail

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	netmail "net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/mail"
)

// base64LineLength is the MIME line limit for base64 bodies.
const base64LineLength = 76

// outgoing is a message ready to be rendered.
type outgoing struct {
	From        string
	To          string
	Subject     string
	Body        string
	InReplyTo   string
	Attachments []mail.Attachment
}

// errHeaderLineBreak rejects header values that would start a new header.
var errHeaderLineBreak = errors.New("header value must not contain line breaks")

// validate checks the header fields before rendering. To must be an
// address list.
func (m *outgoing) validate() error {
	for name, v := range map[string]string{"From": m.From, "To": m.To, "Subject": m.Subject, "In-Reply-To": m.InReplyTo} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%s: %w", name, errHeaderLineBreak)
		}
	}
	if _, err := netmail.ParseAddressList(m.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	return nil
}

// render builds the RFC 5322 message text. The boundary is derived from now.
func (m *outgoing) render(now time.Time) string {
	parts := []string{
		"From: " + m.From,
		"To: " + m.To,
		"Subject: " + encodeRFC2047(m.Subject),
	}
	if m.InReplyTo != "" {
		parts = append(parts,
			"In-Reply-To: "+m.InReplyTo,
			"References: "+m.InReplyTo)
	}
	parts = append(parts, "MIME-Version: 1.0")

	if len(m.Attachments) == 0 {
		parts = append(parts,
			"Content-Type: text/plain; charset=UTF-8",
			"",
			m.Body)
		return strings.Join(parts, "\r\n")
	}

	boundary := fmt.Sprintf("boundary_%x", now.UnixMilli())
	parts = append(parts,
		"Content-Type: multipart/mixed; boundary="+boundary,
		"",
		"--"+boundary,
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 7bit",
		"",
		m.Body,
		"")

	for _, a := range m.Attachments {
		parts = append(parts,
			"--"+boundary,
			"Content-Type: "+a.ContentType(),
			"Content-Transfer-Encoding: base64",
			fmt.Sprintf("Content-Disposition: attachment; filename=%q", a.Filename),
			"")
		parts = append(parts, splitLines(base64.StdEncoding.EncodeToString(a.Content), base64LineLength)...)
		parts = append(parts, "")
	}
	parts = append(parts, "--"+boundary+"--")

	return strings.Join(parts, "\r\n")
}

// raw returns the message in the base64url form the send endpoint expects.
func (m *outgoing) raw(now time.Time) string {
	return base64.RawURLEncoding.EncodeToString([]byte(m.render(now)))
}

func splitLines(s string, n int) []string {
	lines := make([]string, 0, len(s)/n+1)
	for len(s) > n {
		lines = append(lines, s[:n])
		s = s[n:]
	}
	if s != "" {
		lines = append(lines, s)
	}
	return lines
}

// encodeRFC2047 encodes a header value when it contains non-ASCII characters.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// plainTextBody returns the decoded first text/plain part of m, falling back
// to the payload body.
func plainTextBody(m *gmail.Message) (string, error) {
	if m.Payload == nil {
		return "", nil
	}

	var data string
	walkParts(m.Payload, func(p *gmail.MessagePart) bool {
		if p.MimeType == "text/plain" && p.Body != nil && p.Body.Data != "" {
			data = p.Body.Data
			return true
		}
		return false
	})
	if data == "" && m.Payload.Body != nil {
		data = m.Payload.Body.Data
	}
	if data == "" {
		return "", nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode message body: %w", err)
	}
	return string(decoded), nil
}

// walkParts visits the sub-parts of part depth-first until fn returns true.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart) bool) bool {
	for _, sub := range part.Parts {
		if fn(sub) || walkParts(sub, fn) {
			return true
		}
	}
	return false
}
