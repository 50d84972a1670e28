package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// ToolInvocation is the audit record of one tool call.
//
// UserEmail is PII. AuditLogger logs it only when IncludePII is set and
// otherwise logs its hash and domain.
type ToolInvocation struct {
	Tool      string
	UserID    string
	UserEmail string
	Provider  string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a tool call.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithUser sets the caller.
func (ti *ToolInvocation) WithUser(id, email string) *ToolInvocation {
	ti.UserID = id
	ti.UserEmail = email
	return ti
}

// WithProvider sets the mail provider that served the call.
func (ti *ToolInvocation) WithProvider(provider string) *ToolInvocation {
	ti.Provider = provider
	return ti
}

// WithSpanContext copies trace ids from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the clock.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// UserDomain returns the domain of the caller's email.
func (ti *ToolInvocation) UserDomain() string {
	return logging.ExtractDomain(ti.UserEmail)
}

func (ti *ToolInvocation) attrs(includePII bool) []any {
	attrs := []any{
		logging.Tool(ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.UserID != "" {
		attrs = append(attrs, logging.UserID(ti.UserID))
	}
	if ti.UserEmail != "" {
		if includePII {
			attrs = append(attrs, slog.String("user", ti.UserEmail))
		} else {
			attrs = append(attrs, logging.UserHash(ti.UserEmail), logging.Domain(ti.UserEmail))
		}
	}
	if ti.Provider != "" {
		attrs = append(attrs, logging.Provider(ti.Provider))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// AuditLogger writes tool audit records.
type AuditLogger struct {
	logger *slog.Logger
	config AuditLoggingConfig
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, config: config}
}

// LogToolInvocation logs ti at Info on success and Warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.config.Enabled {
		return
	}
	if ti.Success {
		al.logger.Info("tool_executed", ti.attrs(al.config.IncludePII)...)
	} else {
		al.logger.Warn("tool_failed", ti.attrs(al.config.IncludePII)...)
	}
}
