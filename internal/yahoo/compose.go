package yahoo

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	mailsvc "github.com/teemow/inboxpilot/internal/mail"
)

// draft is an outgoing message.
type draft struct {
	From        string
	To          string
	Subject     string
	Body        string
	InReplyTo   string
	Attachments []mailsvc.Attachment
}

// compose renders d as RFC 5322 bytes and returns them with the generated
// Message-ID.
func compose(d *draft, now time.Time) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: d.From}})
	h.SetAddressList("To", []*mail.Address{parseAddress(d.To)})
	h.SetSubject(d.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generating Message-ID: %w", err)
	}
	if id := strings.Trim(d.InReplyTo, "<> "); id != "" {
		h.SetMsgIDList("In-Reply-To", []string{id})
		h.SetMsgIDList("References", []string{id})
	}

	var buf bytes.Buffer
	if len(d.Attachments) == 0 {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, "", fmt.Errorf("creating message: %w", err)
		}
		if err := writeAndClose(w, []byte(d.Body)); err != nil {
			return nil, "", err
		}
	} else if err := composeMultipart(&buf, h, d); err != nil {
		return nil, "", err
	}

	id, _ := h.MessageID()
	return buf.Bytes(), id, nil
}

func composeMultipart(buf *bytes.Buffer, h mail.Header, d *draft) error {
	mw, err := mail.CreateWriter(buf, h)
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return fmt.Errorf("creating text part: %w", err)
	}
	if err := writeAndClose(tw, []byte(d.Body)); err != nil {
		return err
	}

	for _, a := range d.Attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(a.ContentType(), nil)
		ah.SetFilename(a.Filename)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("creating attachment %q: %w", a.Filename, err)
		}
		if err := writeAndClose(aw, a.Content); err != nil {
			return err
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}
	return nil
}

func writeAndClose(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing message part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message part: %w", err)
	}
	return nil
}

// parseAddress accepts "Name <addr>" or a bare address.
func parseAddress(s string) *mail.Address {
	if a, err := mail.ParseAddress(s); err == nil {
		return a
	}
	return &mail.Address{Address: strings.TrimSpace(s)}
}

// parsed is the readable content of a raw message.
type parsed struct {
	Text    string
	Subject string
	From    string
	To      string
	Date    string
}

// parseMessage extracts the first text part of raw, preferring text/plain
// over text/html. Unparseable input is returned as-is.
func parseMessage(raw []byte) parsed {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return parsed{Text: string(raw)}
	}
	defer mr.Close()

	var p parsed
	p.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		p.From = from[0].Address
	}
	if to, err := mr.Header.AddressList("To"); err == nil && len(to) > 0 {
		p.To = to[0].Address
	}
	if date, err := mr.Header.Date(); err == nil {
		p.Date = formatDate(date)
	}

	var html string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(ct, "text/plain") && p.Text == "":
			p.Text = string(body)
		case strings.HasPrefix(ct, "text/html") && html == "":
			html = string(body)
		}
	}
	if p.Text == "" {
		p.Text = html
	}
	return p
}
