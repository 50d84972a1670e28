package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxpilot/internal/mail"
)

var fixedNow = time.UnixMilli(0x18c5a3b2f00)

func TestOutgoingRender_PlainText(t *testing.T) {
	m := &outgoing{From: "me@example.com", To: "bob@example.com", Subject: "Hi", Body: "hello"}

	want := strings.Join([]string{
		"From: me@example.com",
		"To: bob@example.com",
		"Subject: Hi",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"hello",
	}, "\r\n")

	if got := m.render(fixedNow); got != want {
		t.Errorf("render() =\n%q\nwant\n%q", got, want)
	}
}

func TestOutgoingRender_Attachments(t *testing.T) {
	content := []byte(strings.Repeat("x", 100))
	m := &outgoing{
		From:    "me@example.com",
		To:      "bob@example.com",
		Subject: "Report",
		Body:    "see attached",
		Attachments: []mail.Attachment{
			{Filename: "report.pdf", Content: content, MimeType: "application/pdf"},
			{Filename: "blob.bin", Content: []byte{1, 2, 3}},
		},
	}

	got := m.render(fixedNow)
	boundary := "boundary_18c5a3b2f00"

	for _, want := range []string{
		"Content-Type: multipart/mixed; boundary=" + boundary + "\r\n\r\n--" + boundary,
		"Content-Type: text/plain; charset=UTF-8\r\nContent-Transfer-Encoding: 7bit\r\n\r\nsee attached\r\n",
		"Content-Type: application/pdf\r\nContent-Transfer-Encoding: base64\r\nContent-Disposition: attachment; filename=\"report.pdf\"",
		"Content-Type: application/octet-stream\r\n",
		"\r\n--" + boundary + "--",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render() missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "--"+boundary+"--") {
		t.Error("render() should end with the closing boundary")
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	if !strings.Contains(got, encoded[:76]+"\r\n"+encoded[76:]+"\r\n") {
		t.Error("attachment body is not split into 76-character lines")
	}
}

func TestOutgoingRender_ReplyHeaders(t *testing.T) {
	m := &outgoing{From: "me", To: "bob", Subject: "Re: Hi", Body: "ok", InReplyTo: "<abc@mail>"}
	got := m.render(fixedNow)

	if !strings.Contains(got, "In-Reply-To: <abc@mail>\r\nReferences: <abc@mail>\r\n") {
		t.Errorf("render() missing threading headers:\n%s", got)
	}
}

func TestOutgoingRaw_IsUnpaddedBase64URL(t *testing.T) {
	m := &outgoing{From: "me", To: "bob", Subject: "??>>", Body: "~~~???"}
	raw := m.raw(fixedNow)

	if strings.ContainsAny(raw, "+/=") {
		t.Errorf("raw() = %q contains non-URL-safe characters or padding", raw)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw() is not base64url: %v", err)
	}
	if string(decoded) != m.render(fixedNow) {
		t.Error("raw() does not decode to the rendered message")
	}
}

func TestEncodeRFC2047(t *testing.T) {
	if got := encodeRFC2047("Plain subject"); got != "Plain subject" {
		t.Errorf("encodeRFC2047(ascii) = %q", got)
	}
	if got := encodeRFC2047("Grüße"); !strings.HasPrefix(got, "=?UTF-8?b?") {
		t.Errorf("encodeRFC2047(non-ascii) = %q, want B-encoded word", got)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{strings.Repeat("a", 76), 1},
		{strings.Repeat("a", 77), 2},
		{strings.Repeat("a", 152), 2},
	}
	for _, tt := range tests {
		if got := splitLines(tt.in, 76); len(got) != tt.want {
			t.Errorf("splitLines(len %d) = %d lines, want %d", len(tt.in), len(got), tt.want)
		}
	}
}

func TestPlainTextBody(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name string
		msg  *gmail.Message
		want string
	}{
		{
			name: "multipart prefers text/plain",
			msg: &gmail.Message{Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: enc("<b>hi</b>")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: enc("hi")}},
				},
			}},
			want: "hi",
		},
		{
			name: "nested part",
			msg: &gmail.Message{Payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: enc("nested?")}},
					},
				}},
			}},
			want: "nested?",
		},
		{
			name: "single part body",
			msg: &gmail.Message{Payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: enc("single")},
			}},
			want: "single",
		},
		{name: "no payload", msg: &gmail.Message{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plainTextBody(tt.msg)
			if err != nil {
				t.Fatalf("plainTextBody() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("plainTextBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutgoingValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     outgoing
		wantErr string
	}{
		{name: "plain", msg: outgoing{From: "me@example.com", To: "bob@example.com", Subject: "Hi"}},
		{name: "display name", msg: outgoing{From: "me@example.com", To: `"Bob B" <bob@example.com>`, Subject: "Hi"}},
		{name: "subject with CRLF", msg: outgoing{From: "me@example.com", To: "bob@example.com", Subject: "Hi\r\nBcc: eve@evil.example"}, wantErr: "Subject"},
		{name: "recipient with LF", msg: outgoing{From: "me@example.com", To: "bob@example.com\nBcc: eve@evil.example"}, wantErr: "To"},
		{name: "in-reply-to with CR", msg: outgoing{From: "me@example.com", To: "bob@example.com", InReplyTo: "<a@b>\rX: y"}, wantErr: "In-Reply-To"},
		{name: "not an address", msg: outgoing{From: "me@example.com", To: "bob"}, wantErr: "invalid recipient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
