package user

import (
	"strings"
	"time"
)

// Provider identifies the identity provider a user authenticated with.
type Provider string

// Supported providers
const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderYahoo     Provider = "yahoo"
	ProviderLocal     Provider = "local"
)

// ParseProvider returns the provider named by s, case-insensitively.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGoogle, ProviderMicrosoft, ProviderYahoo, ProviderLocal:
		return p, true
	default:
		return p, false
	}
}

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Subscription plans
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// Subscription tracks the billing plan and daily usage of a user.
type Subscription struct {
	Plan                 string     `bson:"plan" json:"plan"`
	StartDate            *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate              *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Status               string     `bson:"status" json:"status"`
	StripeCustomerID     string     `bson:"stripeCustomerId,omitempty" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string     `bson:"stripeSubscriptionId,omitempty" json:"stripeSubscriptionId,omitempty"`
	DailyRequests        int        `bson:"dailyRequests" json:"dailyRequests"`
	DailyTokens          int        `bson:"dailyTokens" json:"dailyTokens"`
	LastRequestDate      *time.Time `bson:"lastRequestDate,omitempty" json:"lastRequestDate,omitempty"`
	AutoRenew            bool       `bson:"autoRenew" json:"autoRenew"`
}

// User is the persisted account. All token fields hold ciphertext.
type User struct {
	ID           string   `bson:"_id" json:"id"`
	Name         string   `bson:"name" json:"name"`
	Email        string   `bson:"email" json:"email"`
	Role         string   `bson:"role" json:"role"`
	AuthProvider Provider `bson:"authProvider" json:"authProvider"`

	GoogleID    string `bson:"googleId,omitempty" json:"googleId,omitempty"`
	MicrosoftID string `bson:"microsoftId,omitempty" json:"microsoftId,omitempty"`
	YahooID     string `bson:"yahooId,omitempty" json:"yahooId,omitempty"`

	GoogleAccessToken    string `bson:"googleAccessToken,omitempty" json:"-"`
	MicrosoftAccessToken string `bson:"microsoftAccessToken,omitempty" json:"-"`
	YahooAccessToken     string `bson:"yahooAccessToken,omitempty" json:"-"`

	GoogleRefreshToken    string `bson:"googleRefreshToken,omitempty" json:"-"`
	MicrosoftRefreshToken string `bson:"microsoftRefreshToken,omitempty" json:"-"`
	YahooRefreshToken     string `bson:"yahooRefreshToken,omitempty" json:"-"`

	// RefreshToken is the shared field written by older deployments.
	// It is read as a fallback and cleared on logout.
	RefreshToken string `bson:"refreshToken,omitempty" json:"-"`

	Status   string     `bson:"status" json:"status"`
	Verified bool       `bson:"verified" json:"verified"`
	LastSync *time.Time `bson:"lastSync,omitempty" json:"lastSync,omitempty"`

	Subscription Subscription `bson:"subscription" json:"subscription"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccessTokenFor returns the stored access token ciphertext for p.
func (u *User) AccessTokenFor(p Provider) string {
	switch p {
	case ProviderGoogle:
		return u.GoogleAccessToken
	case ProviderMicrosoft:
		return u.MicrosoftAccessToken
	case ProviderYahoo:
		return u.YahooAccessToken
	}
	return ""
}

// RefreshTokenFor returns the stored refresh token ciphertext for p. The
// legacy shared field is used only by documents that predate per-provider
// refresh tokens, where it belongs to the active provider.
func (u *User) RefreshTokenFor(p Provider) string {
	switch p {
	case ProviderGoogle:
		if u.GoogleRefreshToken != "" {
			return u.GoogleRefreshToken
		}
	case ProviderMicrosoft:
		if u.MicrosoftRefreshToken != "" {
			return u.MicrosoftRefreshToken
		}
	case ProviderYahoo:
		if u.YahooRefreshToken != "" {
			return u.YahooRefreshToken
		}
	default:
		return ""
	}
	if u.hasProviderRefreshToken() || p != u.AuthProvider {
		return ""
	}
	return u.RefreshToken
}

func (u *User) hasProviderRefreshToken() bool {
	return u.GoogleRefreshToken != "" || u.MicrosoftRefreshToken != "" || u.YahooRefreshToken != ""
}

// SetAccessToken stores ciphertext as the access token for p.
func (u *User) SetAccessToken(p Provider, ciphertext string) {
	switch p {
	case ProviderGoogle:
		u.GoogleAccessToken = ciphertext
	case ProviderMicrosoft:
		u.MicrosoftAccessToken = ciphertext
	case ProviderYahoo:
		u.YahooAccessToken = ciphertext
	}
}

// SetRefreshToken stores ciphertext as the refresh token for p.
func (u *User) SetRefreshToken(p Provider, ciphertext string) {
	switch p {
	case ProviderGoogle:
		u.GoogleRefreshToken = ciphertext
	case ProviderMicrosoft:
		u.MicrosoftRefreshToken = ciphertext
	case ProviderYahoo:
		u.YahooRefreshToken = ciphertext
	}
}

// SetProviderID records the provider-side account id for p.
func (u *User) SetProviderID(p Provider, id string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = id
	case ProviderMicrosoft:
		u.MicrosoftID = id
	case ProviderYahoo:
		u.YahooID = id
	}
}

// ClearCredentials removes every access and refresh token.
func (u *User) ClearCredentials() {
	u.GoogleAccessToken = ""
	u.MicrosoftAccessToken = ""
	u.YahooAccessToken = ""
	u.GoogleRefreshToken = ""
	u.MicrosoftRefreshToken = ""
	u.YahooRefreshToken = ""
	u.RefreshToken = ""
}

// Touch sets LastSync to now.
func (u *User) Touch(now time.Time) {
	t := now.UTC()
	u.LastSync = &t
}

// Public returns a copy of u without any credential material.
func (u *User) Public() *User {
	c := *u
	c.ClearCredentials()
	return &c
}
