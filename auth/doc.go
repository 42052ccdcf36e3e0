// Package auth implements OAuth 2.0 with PKCE for the Canva Connect API.
//
// A Client walks a credential through its lifecycle: build an authorization
// URL, exchange the returned code, hand out access tokens while refreshing
// them transparently, and finally revoke them. Credentials live in a
// TokenStore, which may be shared by several clients:
//
//	store := auth.NewTokenStore()
//	a, _ := auth.NewClientWithTokenStore(cfg, store)
//	b, _ := auth.NewClientWithTokenStore(cfg, store)
//
//	authURL, pkce, _ := a.AuthorizationURL(state)
//	// ... user authorizes, callback delivers code ...
//	_, err := a.ExchangeCodeWithPKCE(ctx, code, pkce)
//
//	token, err := b.GetAccessToken(ctx) // sees a's token
//
// # Credential states
//
// The store is in one of four states (see State): no token, valid token,
// expired with a refresh token, and expired without one. GetAccessToken
// returns immediately in the valid state, refreshes once in the
// expired-with-refresh state, and otherwise fails with an *AuthError
// wrapping ErrNoValidToken, which means the authorization flow has to be
// restarted.
//
// Concurrent GetAccessToken calls on clients sharing a store perform a
// single refresh; the others wait for its result.
//
// # Errors
//
// Provider rejections and missing credentials are *AuthError values and
// match ErrAuthentication with errors.Is. Network failures and malformed
// responses are returned wrapped and do not match it.
//
// # Security
//
// PKCE (S256) is always used. Tokens are never logged: AccessToken redacts
// itself when formatted, and logs and audit events carry only a SHA-256
// fingerprint.
package auth
