package auth

import (
	"time"

	"github.com/giantswarm/canva-connect/security"
)

// TokenSet is the credential state produced by a code exchange or a refresh.
// It is a value: the store copies it in and out, and updates replace it whole.
type TokenSet struct {
	AccessToken string
	// RefreshToken is empty when the provider issued none
	RefreshToken string
	TokenType    string
	// ExpiresAt is zero when the token never expires
	ExpiresAt time.Time
	// Scope is the space-delimited granted scope, if reported
	Scope string
}

// IsExpiredAt reports whether the access token is past its lifetime at now.
// A token expiring exactly at now is expired.
func (t TokenSet) IsExpiredAt(now time.Time) bool {
	return security.IsTokenExpired(t.ExpiresAt, now)
}

// IsExpired reports whether the access token is past its lifetime
func (t TokenSet) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// ExpiresWithin reports whether the token expires within d of now
func (t TokenSet) ExpiresWithin(now time.Time, d time.Duration) bool {
	return security.IsTokenExpiringSoon(t.ExpiresAt, now, d)
}

// HasRefreshToken reports whether the set can be refreshed
func (t TokenSet) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// BearerToken returns the access token as an AccessToken
func (t TokenSet) BearerToken() AccessToken {
	return NewAccessToken(t.AccessToken)
}

// TokenExchangeResponse is the token endpoint's response to an exchange or refresh
type TokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is the lifetime in seconds; nil when the provider omitted it
	ExpiresIn    *int64 `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenSetFromExchangeResponse builds the TokenSet for a response received at now.
// An absent expires_in means the token never expires.
func TokenSetFromExchangeResponse(resp *TokenExchangeResponse, now time.Time) TokenSet {
	set := TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}
	if set.TokenType == "" {
		set.TokenType = "Bearer"
	}
	if resp.ExpiresIn != nil {
		set.ExpiresAt = security.ExpiryFromExpiresIn(now, *resp.ExpiresIn)
		if set.ExpiresAt.IsZero() {
			// negative lifetime: already expired
			set.ExpiresAt = now
		}
	}
	return set
}

// IntrospectionResponse is the introspection endpoint's view of a token
type IntrospectionResponse struct {
	Active bool `json:"active"`
	// Exp is the expiry as Unix seconds; zero when not reported
	Exp      int64  `json:"exp,omitempty"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ExpiresAt converts Exp to a time; zero when not reported
func (r *IntrospectionResponse) ExpiresAt() time.Time {
	if r.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(r.Exp, 0).UTC()
}
