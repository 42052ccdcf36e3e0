package security

// Event type constants for security audit logging.
const (
	// Token lifecycle events

	// EventTokenIssued is logged when an authorization code is exchanged for a token set
	EventTokenIssued = "token_issued"

	// EventTokenRefreshed is logged when an access token is refreshed using a refresh token
	EventTokenRefreshed = "token_refreshed"

	// EventTokenRevoked is logged when a token is revoked at the provider
	EventTokenRevoked = "token_revoked"

	// EventTokensCleared is logged when the local token store is cleared without a provider call
	EventTokensCleared = "tokens_cleared" //nolint:gosec // G101: event type name, not a credential

	// Security violation events

	// EventAuthFailure is logged when an exchange, refresh, introspection or revocation fails
	EventAuthFailure = "auth_failure"

	// EventRateLimitNearExhaustion is logged when response headers report >80% quota usage
	EventRateLimitNearExhaustion = "rate_limit_near_exhaustion"
)
