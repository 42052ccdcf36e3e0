package canva

import (
	"context"

	"github.com/giantswarm/canva-connect/auth"
)

var (
	_ AccessTokenProvider = (*auth.Client)(nil)
	_ AccessTokenProvider = StaticTokenProvider{}
)

// StaticTokenProvider hands out a fixed access token. Use it when the token
// was obtained elsewhere; it never refreshes.
type StaticTokenProvider struct {
	token auth.AccessToken
}

// NewStaticTokenProvider wraps an existing access token
func NewStaticTokenProvider(token string) StaticTokenProvider {
	return StaticTokenProvider{token: auth.NewAccessToken(token)}
}

// GetAccessToken returns the wrapped token, or an *auth.AuthError wrapping
// auth.ErrNoValidToken if it is empty
func (p StaticTokenProvider) GetAccessToken(context.Context) (auth.AccessToken, error) {
	if p.token.IsZero() {
		return auth.AccessToken{}, &auth.AuthError{Op: "get_access_token", Err: auth.ErrNoValidToken}
	}
	return p.token, nil
}
