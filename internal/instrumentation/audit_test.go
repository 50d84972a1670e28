package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/teemow/inboxpilot/internal/logging"
)

const testEmail = "jane@example.com"

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record %q: %v", buf.String(), err)
	}
	return rec
}

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("send-email").WithUser("u1", testEmail).WithProvider("gmail")
	if ti.StartTime.IsZero() {
		t.Fatal("StartTime should be set")
	}

	ti.Complete(false, errors.New("quota exceeded"))
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q", ti.Status())
	}
	if ti.Error != "quota exceeded" {
		t.Errorf("Error = %q", ti.Error)
	}
	if ti.UserDomain() != "example.com" {
		t.Errorf("UserDomain() = %q", ti.UserDomain())
	}
}

func TestAuditLogger_Anonymizes(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true})

	al.LogToolInvocation(NewToolInvocation("read-email").WithUser("u1", testEmail).Complete(true, nil))

	rec := decodeRecord(t, &buf)
	if rec["msg"] != "tool_executed" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if _, ok := rec["user"]; ok {
		t.Error("email must not be logged without IncludePII")
	}
	if rec[logging.KeyUserHash] != logging.AnonymizeEmail(testEmail) {
		t.Errorf("user_hash = %v", rec[logging.KeyUserHash])
	}
	if rec[logging.KeyUserID] != "u1" {
		t.Errorf("user_id = %v", rec[logging.KeyUserID])
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true, IncludePII: true})

	al.LogToolInvocation(NewToolInvocation("trash-email").WithUser("u1", testEmail).Complete(false, errors.New("denied")))

	rec := decodeRecord(t, &buf)
	if rec["msg"] != "tool_failed" || rec["level"] != "WARN" {
		t.Errorf("record = %v", rec)
	}
	if rec["user"] != testEmail {
		t.Errorf("user = %v", rec["user"])
	}
	if rec[logging.KeyError] != "denied" {
		t.Errorf("error = %v", rec[logging.KeyError])
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation("x").Complete(true, nil))

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation("x"))

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
