package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// GoogleTokenInfoURL is Google's access token introspection endpoint.
const GoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// TokenValidator checks Google access tokens against tokeninfo.
type TokenValidator struct {
	URL  string
	HTTP *http.Client
}

// NewTokenValidator returns a validator for the production endpoint.
func NewTokenValidator() *TokenValidator {
	return &TokenValidator{
		URL:  GoogleTokenInfoURL,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	ExpiresIn json.Number `json:"expires_in"`
}

// ValidateGoogleToken reports whether accessToken is accepted by Google and
// has time left. Any transport or decoding failure counts as invalid.
func (v *TokenValidator) ValidateGoogleToken(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.URL+"?"+url.Values{"access_token": {accessToken}}.Encode(), nil)
	if err != nil {
		return false
	}
	resp, err := v.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false
	}
	secs, err := info.ExpiresIn.Int64()
	return err == nil && secs > 0
}
