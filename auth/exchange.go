package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/giantswarm/canva-connect/instrumentation"
)

// Operation names used in errors, spans and metrics
const (
	opExchangeCode    = "exchange_code"
	opRefreshToken    = "refresh_token"
	opIntrospectToken = "introspect_token"
	opRevokeToken     = "revoke_token"
	opGetAccessToken  = "get_access_token"
)

// ExchangeCodeWithPKCE exchanges an authorization code for tokens and stores
// them. pkce must be the pair returned with the authorization URL; PKCE is
// mandatory and a missing or inconsistent pair is rejected before any request.
// On failure the store is left untouched.
func (c *Client) ExchangeCodeWithPKCE(ctx context.Context, code string, pkce *PKCEParams) (*TokenExchangeResponse, error) {
	if code == "" {
		return nil, newAuthError(opExchangeCode, errors.New("authorization code is required"))
	}
	if !pkce.Verify() {
		c.auditor.LogAuthFailure(c.config.ClientID, opExchangeCode, ErrInvalidPKCE.Error())
		return nil, newAuthError(opExchangeCode, ErrInvalidPKCE)
	}

	ctx, span := c.startProviderSpan(ctx, opExchangeCode)
	defer span.End()
	instrumentation.AddOAuthFlowAttributes(span, c.config.ClientID, "authorization_code", c.config.ScopesString())
	instrumentation.AddPKCEAttributes(span, pkce.CodeChallengeMethod)

	if err := c.waitForSlot(ctx); err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}

	start := c.clock.Now()
	token, err := c.oauthConfig.Exchange(c.oauth2Context(ctx), code,
		oauth2.VerifierOption(pkce.CodeVerifier),
	)
	if err != nil {
		err = c.providerError(ctx, span, opExchangeCode, start, err)
		return nil, err
	}
	c.recordProviderSuccess(ctx, span, opExchangeCode, start)

	now := c.clock.Now()
	resp := tokenResponseFromOAuth2(token)
	set := TokenSetFromExchangeResponse(resp, now)
	if set.Scope == "" {
		set.Scope = c.config.ScopesString()
	}
	c.store.Store(set)

	c.instrumentation.Metrics().RecordCodeExchange(ctx, c.config.ClientID, pkce.CodeChallengeMethod)
	c.auditor.LogTokenIssued(c.config.ClientID, set.AccessToken, set.Scope)
	c.logger.Info("Exchanged authorization code",
		"client_id", c.config.ClientID,
		"expires_at", set.ExpiresAt,
		"has_refresh_token", set.RefreshToken != "")

	return resp, nil
}

// RefreshToken obtains a new access token with the stored refresh token and
// replaces the stored set. The previous refresh token is kept when the
// provider does not rotate it. On failure the old set stays in the store.
func (c *Client) RefreshToken(ctx context.Context) (*TokenExchangeResponse, error) {
	current, ok := c.store.Get()
	if !ok {
		return nil, newAuthError(opRefreshToken, ErrNoTokenSet)
	}
	if current.RefreshToken == "" {
		return nil, newAuthError(opRefreshToken, ErrNoRefreshToken)
	}

	ctx, span := c.startProviderSpan(ctx, opRefreshToken)
	defer span.End()
	instrumentation.AddOAuthFlowAttributes(span, c.config.ClientID, "refresh_token", "")

	if err := c.waitForSlot(ctx); err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}

	start := c.clock.Now()
	// Without an access token the source always goes to the token endpoint.
	token, err := c.oauthConfig.TokenSource(c.oauth2Context(ctx), &oauth2.Token{
		RefreshToken: current.RefreshToken,
	}).Token()
	if err != nil {
		err = c.providerError(ctx, span, opRefreshToken, start, err)
		return nil, err
	}
	c.recordProviderSuccess(ctx, span, opRefreshToken, start)

	now := c.clock.Now()
	resp := tokenResponseFromOAuth2(token)
	next := TokenSetFromExchangeResponse(resp, now)
	rotated := resp.RefreshToken != "" && resp.RefreshToken != current.RefreshToken
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if next.Scope == "" {
		next.Scope = current.Scope
	}

	if !c.store.replaceIfRefreshToken(current.RefreshToken, next) {
		c.logger.Warn("Token store changed during refresh, discarding refreshed token set",
			"client_id", c.config.ClientID)
	}

	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrTokenRotated, rotated))
	c.instrumentation.Metrics().RecordTokenRefresh(ctx, c.config.ClientID, rotated, false)
	c.auditor.LogTokenRefreshed(c.config.ClientID, next.AccessToken, rotated)
	c.logger.Info("Refreshed access token",
		"client_id", c.config.ClientID,
		"expires_at", next.ExpiresAt,
		"rotated", rotated)

	return resp, nil
}

// oauth2Context makes golang.org/x/oauth2 use our HTTP client
func (c *Client) oauth2Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) startProviderSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "oauth."+op)
	instrumentation.AddProviderAttributes(span, providerName, op)
	return ctx, span
}

// waitForSlot blocks on the shared limiter, if any
func (c *Client) waitForSlot(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.WaitForRequest(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return nil
}

func (c *Client) recordProviderSuccess(ctx context.Context, span trace.Span, op string, start time.Time) {
	c.instrumentation.Metrics().RecordProviderAPICall(ctx, providerName, op, 200, msSince(c.clock, start), nil)
	instrumentation.SetSpanSuccess(span)
}

// providerError classifies an oauth2 failure. A provider rejection becomes an
// *AuthError carrying the response body; anything else is a transport error.
func (c *Client) providerError(ctx context.Context, span trace.Span, op string, start time.Time, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		authErr := newProviderError(op, status, retrieveErr.Body)
		if retrieveErr.ErrorCode != "" {
			instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrError, retrieveErr.ErrorCode))
		}
		c.failProviderCall(ctx, span, op, status, start, authErr)
		c.auditor.LogAuthFailure(c.config.ClientID, op, retrieveErr.ErrorCode)
		c.logger.Warn("Provider rejected request",
			"operation", op,
			"status", status,
			"error_code", retrieveErr.ErrorCode)
		return authErr
	}

	wrapped := fmt.Errorf("failed to %s: %w", opVerb(op), err)
	c.failProviderCall(ctx, span, op, 0, start, wrapped)
	c.logger.Error("Provider request failed", "operation", op, "error", err)
	return wrapped
}

func (c *Client) failProviderCall(ctx context.Context, span trace.Span, op string, status int, start time.Time, err error) {
	c.instrumentation.Metrics().RecordProviderAPICall(ctx, providerName, op, status, msSince(c.clock, start), err)
	if IsAuthError(err) {
		c.instrumentation.Metrics().RecordAuthFailure(ctx, op)
	}
	instrumentation.RecordError(span, err)
}

func opVerb(op string) string {
	switch op {
	case opExchangeCode:
		return "exchange code"
	case opRefreshToken:
		return "refresh token"
	case opIntrospectToken:
		return "introspect token"
	case opRevokeToken:
		return "revoke token"
	default:
		return op
	}
}

// tokenResponseFromOAuth2 rebuilds the wire response from an oauth2.Token.
// Fields are read from the raw response where oauth2 fills in defaults.
func tokenResponseFromOAuth2(token *oauth2.Token) *TokenExchangeResponse {
	resp := &TokenExchangeResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64Extra(token.Extra("expires_in")),
	}
	// oauth2 copies the request's refresh token into the result when the
	// provider sends none; only report what the provider actually returned.
	if rt, ok := token.Extra("refresh_token").(string); ok {
		resp.RefreshToken = rt
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}

// int64Extra converts a raw JSON or form value to int64
func int64Extra(v any) *int64 {
	var n int64
	switch x := v.(type) {
	case float64:
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = i
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		n = i
	case int64:
		n = x
	case int:
		n = int64(x)
	default:
		return nil
	}
	return &n
}
