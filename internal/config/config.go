// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/inboxpilot/internal/oauth"
	"github.com/teemow/inboxpilot/internal/secret"
)

// Config holds all configuration for the server and CLI.
type Config struct {
	// Provider OAuth clients
	GoogleClientID        string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI     string `mapstructure:"GOOGLE_REDIRECT_URI"`
	MicrosoftClientID     string `mapstructure:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `mapstructure:"MICROSOFT_CLIENT_SECRET"`
	MicrosoftRedirectURI  string `mapstructure:"MICROSOFT_REDIRECT_URI"`
	YahooClientID         string `mapstructure:"YAHOO_CLIENT_ID"`
	YahooClientSecret     string `mapstructure:"YAHOO_CLIENT_SECRET"`
	YahooRedirectURI      string `mapstructure:"YAHOO_REDIRECT_URI"`

	// Token encryption
	EncryptionKey  string `mapstructure:"ENCRYPTION_KEY"`
	EncryptionSalt string `mapstructure:"ENCRYPTION_SALT"`

	// Storage; an empty URI selects the in-memory store
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	// Sessions
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTExpireIn string `mapstructure:"JWT_EXPIRE_IN"`

	// Text generation
	GroqAPIKey string `mapstructure:"GROQ_API_KEY"`

	// Server
	Port            int    `mapstructure:"PORT"`
	MetricsAddr     string `mapstructure:"METRICS_ADDR"`
	MailCallTimeout string `mapstructure:"MAIL_CALL_TIMEOUT"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Parsed forms of the duration strings
	SessionTTL  time.Duration `mapstructure:"-"`
	CallTimeout time.Duration `mapstructure:"-"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	for _, key := range []string{
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"MICROSOFT_CLIENT_ID", "MICROSOFT_CLIENT_SECRET", "MICROSOFT_REDIRECT_URI",
		"YAHOO_CLIENT_ID", "YAHOO_CLIENT_SECRET", "YAHOO_REDIRECT_URI",
		"ENCRYPTION_KEY", "MONGODB_URI", "GROQ_API_KEY",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("ENCRYPTION_SALT", secret.DefaultSalt)
	v.SetDefault("MONGODB_DATABASE", "inboxpilot")
	v.SetDefault("JWT_SECRET", "default-secret")
	v.SetDefault("JWT_EXPIRE_IN", "24h")
	v.SetDefault("PORT", 4000)
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("MAIL_CALL_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads a .env file if present, then the environment, into a Config.
// Flags bound on v with BindPFlag take precedence over the environment. A
// nil v uses a fresh viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	var err error
	if cfg.SessionTTL, err = ParseDuration(cfg.JWTExpireIn); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRE_IN: %w", err)
	}
	if cfg.CallTimeout, err = ParseDuration(cfg.MailCallTimeout); err != nil {
		return nil, fmt.Errorf("invalid MAIL_CALL_TIMEOUT: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EncryptionKey) == "" {
		return errors.New("ENCRYPTION_KEY is not set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	return nil
}

// OAuthConfigs builds the provider OAuth client configurations.
func (c *Config) OAuthConfigs() oauth.Configs {
	return oauth.NewConfigs(
		oauth.Credentials{ClientID: c.GoogleClientID, ClientSecret: c.GoogleClientSecret, RedirectURL: c.GoogleRedirectURI},
		oauth.Credentials{ClientID: c.MicrosoftClientID, ClientSecret: c.MicrosoftClientSecret, RedirectURL: c.MicrosoftRedirectURI},
		oauth.Credentials{ClientID: c.YahooClientID, ClientSecret: c.YahooClientSecret, RedirectURL: c.YahooRedirectURI},
	)
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix
// such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
