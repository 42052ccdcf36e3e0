package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// Canva OAuth endpoints
const (
	CanvaAuthURL       = "https://www.canva.com/api/oauth/authorize"
	CanvaTokenURL      = "https://api.canva.com/rest/v1/oauth/token"
	CanvaIntrospectURL = "https://api.canva.com/rest/v1/oauth/introspect"
	CanvaRevokeURL     = "https://api.canva.com/rest/v1/oauth/revoke"
)

// Endpoint holds the provider URLs the client talks to
type Endpoint struct {
	AuthURL       string
	TokenURL      string
	IntrospectURL string
	RevokeURL     string
}

// CanvaEndpoint is the production Canva endpoint
var CanvaEndpoint = Endpoint{
	AuthURL:       CanvaAuthURL,
	TokenURL:      CanvaTokenURL,
	IntrospectURL: CanvaIntrospectURL,
	RevokeURL:     CanvaRevokeURL,
}

// Validate checks that every URL is absolute
func (e Endpoint) Validate() error {
	for name, raw := range map[string]string{
		"auth URL":       e.AuthURL,
		"token URL":      e.TokenURL,
		"introspect URL": e.IntrospectURL,
		"revoke URL":     e.RevokeURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an absolute URL", name, raw)
		}
	}
	return nil
}

// Config is the OAuth application registration. It is not modified after NewClient.
type Config struct {
	// ClientID is the Canva integration's client ID
	ClientID string

	// ClientSecret is the Canva integration's client secret
	ClientSecret string

	// RedirectURI must match a redirect URL registered for the integration
	RedirectURI string

	// Scopes are requested in this order
	Scopes []Scope
}

// Validate checks that required fields are present
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("redirect URI is required")
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("redirect URI %q must be an absolute URL", c.RedirectURI)
	}
	for _, s := range c.Scopes {
		if _, err := ParseScope(string(s)); err != nil {
			return err
		}
	}
	return nil
}

// ScopesString returns the configured scopes space-joined
func (c *Config) ScopesString() string {
	return ScopesString(c.Scopes)
}

func (c *Config) clone() Config {
	out := *c
	out.Scopes = append([]Scope(nil), c.Scopes...)
	return out
}
