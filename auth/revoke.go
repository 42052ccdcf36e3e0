package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/canva-connect/instrumentation"
	"github.com/giantswarm/canva-connect/security"
)

// maxResponseBodySize bounds provider responses read into memory
const maxResponseBodySize = 1 << 20

// IntrospectToken asks the provider about a token. The store is not modified.
func (c *Client) IntrospectToken(ctx context.Context, token string) (*IntrospectionResponse, error) {
	if token == "" {
		return nil, newAuthError(opIntrospectToken, errors.New("token is required"))
	}

	ctx, span := c.startProviderSpan(ctx, opIntrospectToken)
	defer span.End()

	form := url.Values{}
	form.Set("token", token)

	body, err := c.postForm(ctx, span, opIntrospectToken, c.endpoint.IntrospectURL, form)
	if err != nil {
		return nil, err
	}

	var resp IntrospectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		err = fmt.Errorf("failed to decode introspection response: %w", err)
		instrumentation.RecordError(span, err)
		return nil, err
	}

	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrTokenActive, resp.Active))
	c.instrumentation.Metrics().RecordTokenIntrospection(ctx, c.config.ClientID, resp.Active)
	c.logger.Debug("Introspected token",
		"client_id", c.config.ClientID,
		"token_hash", security.TokenFingerprint(token),
		"active", resp.Active)

	return &resp, nil
}

// RevokeToken revokes a token at the provider. typeHint ("access_token" or
// "refresh_token") is optional. If the revoked token is the stored access
// token the store is cleared; revoking any other token leaves it alone.
func (c *Client) RevokeToken(ctx context.Context, token, typeHint string) error {
	if token == "" {
		return newAuthError(opRevokeToken, errors.New("token is required"))
	}

	ctx, span := c.startProviderSpan(ctx, opRevokeToken)
	defer span.End()
	if typeHint != "" {
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrTokenTypeHint, typeHint))
	}

	form := url.Values{}
	form.Set("token", token)
	if typeHint != "" {
		form.Set("token_type_hint", typeHint)
	}

	if _, err := c.postForm(ctx, span, opRevokeToken, c.endpoint.RevokeURL, form); err != nil {
		return err
	}

	cleared := c.store.clearIfAccessToken(token)

	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrStoreCleared, cleared))
	c.instrumentation.Metrics().RecordTokenRevocation(ctx, c.config.ClientID, cleared)
	c.auditor.LogTokenRevoked(c.config.ClientID, token, typeHint, cleared)
	c.logger.Info("Revoked token",
		"client_id", c.config.ClientID,
		"token_hash", security.TokenFingerprint(token),
		"store_cleared", cleared)

	return nil
}

// postForm sends an authenticated form POST for the endpoints oauth2 has no API for.
// A non-2xx status becomes an *AuthError with the response body.
func (c *Client) postForm(ctx context.Context, span trace.Span, op, endpoint string, form url.Values) ([]byte, error) {
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)

	if err := c.waitForSlot(ctx); err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(security.RequestIDHeader, requestIDFor(ctx))

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.providerError(ctx, span, op, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, c.providerError(ctx, span, op, start, fmt.Errorf("failed to read response: %w", err))
	}

	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrProviderStatus, resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		authErr := newProviderError(op, resp.StatusCode, body)
		c.failProviderCall(ctx, span, op, resp.StatusCode, start, authErr)
		c.auditor.LogAuthFailure(c.config.ClientID, op, fmt.Sprintf("status %d", resp.StatusCode))
		c.logger.Warn("Provider rejected request",
			"operation", op,
			"status", resp.StatusCode)
		return nil, authErr
	}

	c.instrumentation.Metrics().RecordProviderAPICall(ctx, providerName, op, resp.StatusCode, msSince(c.clock, start), nil)
	instrumentation.SetSpanSuccess(span)
	return body, nil
}

// requestIDFor reuses the caller's correlation ID or mints one
func requestIDFor(ctx context.Context) string {
	if id := security.SanitizeRequestID(security.GetRequestID(ctx)); id != "" {
		return id
	}
	return security.GenerateRequestID()
}

func msSince(clock clockwork.Clock, start time.Time) float64 {
	return float64(clock.Since(start).Microseconds()) / 1000
}
