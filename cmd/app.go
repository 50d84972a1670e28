package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/auth"
	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/dispatch"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/llm"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/oauth"
	"github.com/teemow/inboxpilot/internal/secret"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/user"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      user.Store
	cipher     *secret.Cipher
	oauth      oauth.Configs
	factory    *mailbox.Factory
	dispatcher *dispatch.Dispatcher
	chat       *dispatch.Chat
	accounts   *user.Accounts
	tokens     *auth.Tokens

	closers []func(context.Context) error
}

// loadConfig reads and validates configuration, honoring bound flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(settings)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Log output goes to w so the stdio
// transport can keep stdout for protocol traffic.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := logging.New(w, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

// newApp wires storage, credentials and the mail collaborators. metrics may
// be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	cipher, err := secret.NewCipher(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cipher: %w", err)
	}
	a.cipher = cipher

	if cfg.MongoURI == "" {
		logger.Warn("MONGODB_URI not set, users are kept in memory")
		a.store = user.NewMemoryStore()
	} else {
		client, err := user.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		store, err := user.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.store = store
	}

	a.oauth = cfg.OAuthConfigs()
	refresher := oauth.NewRefresher(a.oauth, a.store, cipher,
		oauth.WithMetrics(metrics), oauth.WithLogger(logger))
	a.factory = mailbox.NewFactory(a.store, cipher, refresher, oauth.NewTokenValidator(),
		mailbox.WithBuilders(mailbox.DefaultBuilders(logger)),
		mailbox.WithMetrics(metrics),
		mailbox.WithLogger(logger),
	)

	a.dispatcher = dispatch.New(llm.New(cfg.GroqAPIKey, logger), logger)
	a.chat = dispatch.NewChat(a.dispatcher, nil)
	a.accounts = user.NewAccounts(a.store, cipher, logger)
	a.tokens = auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	return a, nil
}

// serverContext builds the MCP server context over the app.
func (a *app) serverContext(ctx context.Context, defaultUserID string) *server.ServerContext {
	return server.NewServerContext(ctx, server.Deps{
		Store:         a.store,
		Factory:       a.factory,
		Dispatcher:    a.dispatcher,
		Chat:          a.chat,
		Accounts:      a.accounts,
		Logger:        a.logger,
		CallTimeout:   a.cfg.CallTimeout,
		DefaultUserID: defaultUserID,
	})
}

// resolveUser returns the id of the user named by id or, failing that, email.
func (a *app) resolveUser(ctx context.Context, id, email string) (string, error) {
	return resolveUser(ctx, a.store, id, email)
}

func resolveUser(ctx context.Context, store user.Store, id, email string) (string, error) {
	switch {
	case id != "":
		return id, nil
	case email != "":
		u, err := store.FindByEmail(ctx, email)
		if err != nil {
			return "", fmt.Errorf("no account for %s: %w", logging.AnonymizeEmail(email), err)
		}
		return u.ID, nil
	default:
		return "", fmt.Errorf("either --user or --email is required")
	}
}

// Close releases external connections.
func (a *app) Close(ctx context.Context) error {
	var first error
	for _, c := range a.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// withApp loads configuration, wires the app without metrics and runs fn.
// Command logs go to stderr.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg), nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()
	return fn(ctx, a)
}
