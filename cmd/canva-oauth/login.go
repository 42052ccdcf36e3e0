package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/giantswarm/canva-connect/auth"
)

// Login-specific flags
var (
	loginScopes    string
	loginNoBrowser bool
	loginTimeout   time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize with Canva and print the issued tokens",
	Long: `Run the authorization code flow with PKCE.

A local server is started on the redirect URI (which must be a loopback
address registered with the integration) and the authorization URL is opened
in the browser. After consent the code is exchanged and the tokens printed.

Examples:
  canva-oauth login
  canva-oauth login --scopes design:meta:read,asset:read,profile:read
  canva-oauth login --no-browser`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginScopes, "scopes", "design:meta:read,profile:read", "Comma or space separated scopes to request")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for the authorization callback")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	scopes, err := auth.ParseScopes(loginScopes)
	if err != nil {
		return err
	}

	client, err := newOAuthClient(cmd, scopes)
	if err != nil {
		return err
	}

	server, err := newCallbackServer(client.Config().RedirectURI)
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	state := uuid.NewString()
	authURL, pkce, err := client.AuthorizationURL(state)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	if loginNoBrowser {
		_, _ = fmt.Fprintf(out, "Open this URL to authorize:\n\n  %s\n\n", authURL)
	} else if err := openBrowser(authURL); err != nil {
		_, _ = fmt.Fprintf(out, "Could not open a browser (%v). Open this URL to authorize:\n\n  %s\n\n", err, authURL)
	}
	_, _ = fmt.Fprintf(out, "Waiting for the callback on %s\n", server.URL())

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()

	result, err := server.Wait(ctx)
	if err != nil {
		return err
	}
	code, err := checkCallback(result, state)
	if err != nil {
		return err
	}

	if _, err := client.ExchangeCodeWithPKCE(ctx, code, pkce); err != nil {
		return err
	}

	set, _ := client.TokenStore().Get()
	return printJSON(cmd.OutOrStdout(), newTokenOutput(set))
}

// checkCallback validates the redirect against the state we sent
func checkCallback(result callbackResult, wantState string) (string, error) {
	if result.Error != "" {
		return "", fmt.Errorf("authorization denied: %s %s", result.Error, result.ErrorDescription)
	}
	if subtle.ConstantTimeCompare([]byte(result.State), []byte(wantState)) != 1 {
		return "", fmt.Errorf("state mismatch in authorization callback")
	}
	if result.Code == "" {
		return "", fmt.Errorf("authorization callback carried no code")
	}
	return result.Code, nil
}
