package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/auth"
	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/mail"
	"github.com/teemow/inboxpilot/internal/user"
)

// MailboxFactory builds the mail service of a user.
type MailboxFactory interface {
	ForUser(ctx context.Context, userID string) (mail.Service, error)
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Store      user.Store
	Factory    MailboxFactory
	Dispatcher *dispatch.Dispatcher
	Chat       *dispatch.Chat
	Accounts   *user.Accounts
	Logger     *slog.Logger

	// CallTimeout bounds each provider call; zero uses the mail default.
	CallTimeout time.Duration

	// DefaultUserID identifies the caller when the request carries no
	// session, as with the stdio transport.
	DefaultUserID string
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, deps Deps) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Chat == nil && deps.Dispatcher != nil {
		deps.Chat = dispatch.NewChat(deps.Dispatcher, nil)
	}
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		deps:   deps,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Store() user.Store                { return sc.deps.Store }
func (sc *ServerContext) Factory() MailboxFactory          { return sc.deps.Factory }
func (sc *ServerContext) Dispatcher() *dispatch.Dispatcher { return sc.deps.Dispatcher }
func (sc *ServerContext) Chat() *dispatch.Chat             { return sc.deps.Chat }
func (sc *ServerContext) Accounts() *user.Accounts         { return sc.deps.Accounts }
func (sc *ServerContext) Logger() *slog.Logger             { return sc.deps.Logger }

// UserID returns the calling user. A session user takes precedence over the
// default user.
func (sc *ServerContext) UserID(ctx context.Context) (string, error) {
	if id, ok := auth.UserIDFrom(ctx); ok {
		return id, nil
	}
	if sc.deps.DefaultUserID != "" {
		return sc.deps.DefaultUserID, nil
	}
	return "", apierror.Unauthorized("Authentication required")
}

// WithCallTimeout returns ctx carrying the configured provider call timeout.
func (sc *ServerContext) WithCallTimeout(ctx context.Context) context.Context {
	if sc.deps.CallTimeout <= 0 {
		return ctx
	}
	return mail.ContextWithCallTimeout(ctx, sc.deps.CallTimeout)
}

// MailService builds the calling user's mail service.
func (sc *ServerContext) MailService(ctx context.Context) (mail.Service, string, error) {
	userID, err := sc.UserID(ctx)
	if err != nil {
		return nil, "", err
	}
	svc, err := sc.deps.Factory.ForUser(ctx, userID)
	if err != nil {
		return nil, userID, err
	}
	return svc, userID, nil
}

// SetMetrics sets the metrics recorder used by instrumented handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by instrumented handlers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
