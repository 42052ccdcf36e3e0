package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never record access tokens, refresh tokens, authorization
// codes, code verifiers or client secrets in traces or metrics. Only record
// metadata such as token types, expiry, presence flags and results.
const (
	// OAuth flow attributes - metadata only
	AttrClientID      = "oauth.client_id"       // Client identifier (non-secret)
	AttrScope         = "oauth.scope"           // Requested or granted scopes
	AttrPKCEMethod    = "oauth.pkce.method"     // PKCE method used (S256)
	AttrTokenRotated  = "oauth.token.rotated"   //nolint:gosec // Whether the refresh token was rotated
	AttrTokenTypeHint = "oauth.token_type_hint" //nolint:gosec // Revocation/introspection hint
	AttrTokenActive   = "oauth.token.active"    //nolint:gosec // Introspection result
	AttrTokenType     = "oauth.token_type"      //nolint:gosec // Token type (Bearer) - NOT the actual token
	AttrExpiresIn     = "oauth.expires_in"      // Token lifetime in seconds
	AttrGrantType     = "oauth.grant_type"      // OAuth grant type
	AttrStoreCleared  = "oauth.store.cleared"   // Whether revocation cleared the store
	AttrDeduplicated  = "oauth.refresh.deduplicated"
	AttrError         = "oauth.error"             // Provider error code
	AttrErrorDesc     = "oauth.error_description" // Provider error description

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"

	// Rate limit attributes
	AttrRateLimitWaited    = "canva.rate_limit.waited_ms"
	AttrRateLimitRemaining = "canva.rate_limit.remaining"
	AttrRateLimitLimit     = "canva.rate_limit.limit"

	// API attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrRequestID      = "canva.request_id"
	AttrAPIErrorCode   = "canva.error.code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddOAuthFlowAttributes adds common OAuth flow attributes to a span (nil-safe)
func AddOAuthFlowAttributes(span trace.Span, clientID, grantType, scope string) {
	if clientID != "" {
		SetSpanAttributes(span, attribute.String(AttrClientID, clientID))
	}
	if grantType != "" {
		SetSpanAttributes(span, attribute.String(AttrGrantType, grantType))
	}
	if scope != "" {
		SetSpanAttributes(span, attribute.String(AttrScope, scope))
	}
}

// AddPKCEAttributes adds PKCE-related attributes to a span (nil-safe)
func AddPKCEAttributes(span trace.Span, method string) {
	if method != "" {
		SetSpanAttributes(span, attribute.String(AttrPKCEMethod, method))
	}
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddHTTPAttributes adds API request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

// AddRateLimitAttributes adds provider-reported quota attributes to a span (nil-safe).
// Negative values mean the header was absent and are skipped.
func AddRateLimitAttributes(span trace.Span, remaining, limit int) {
	if remaining >= 0 {
		SetSpanAttributes(span, attribute.Int(AttrRateLimitRemaining, remaining))
	}
	if limit >= 0 {
		SetSpanAttributes(span, attribute.Int(AttrRateLimitLimit, limit))
	}
}
