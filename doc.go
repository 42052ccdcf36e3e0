// Package canva is a client for the Canva Connect REST API.
//
// Credentials come from the auth package: an auth.Client runs the OAuth 2.0
// authorization code flow with PKCE and keeps tokens in a shared TokenStore,
// refreshing them when they expire. A canva.Client takes any
// AccessTokenProvider (usually that auth.Client) and sends every request
// through a ratelimit.APIRateLimiter.
//
// Basic usage:
//
//	oauthClient, err := auth.NewClient(auth.Config{
//		ClientID:     os.Getenv("CANVA_CLIENT_ID"),
//		ClientSecret: os.Getenv("CANVA_CLIENT_SECRET"),
//		RedirectURI:  "http://127.0.0.1:8080/callback",
//		Scopes:       []auth.Scope{auth.ScopeDesignMetaRead, auth.ScopeAssetRead},
//	})
//	if err != nil {
//		return err
//	}
//
//	authURL, pkce, err := oauthClient.AuthorizationURL(state)
//	// send the user to authURL, then on the callback:
//	if _, err := oauthClient.ExchangeCodeWithPKCE(ctx, code, pkce); err != nil {
//		return err
//	}
//
//	api, err := canva.NewClient(oauthClient, canva.WithRateLimiter(ratelimit.Conservative()))
//	if err != nil {
//		return err
//	}
//
//	var me struct {
//		TeamUser struct {
//			UserID string `json:"user_id"`
//		} `json:"team_user"`
//	}
//	err = api.GetJSON(ctx, "/users/me", &me)
//
// Non-2xx responses are returned as *APIError carrying Canva's error code and
// the response's X-Request-ID.
package canva
