// Package security provides security-related functionality for the Canva Connect
// client: token expiry evaluation, audit logging and request correlation.
//
// # Token Expiry
//
// Expiry checks take the current time explicitly so callers can drive them from
// an injected clock. A zero expiry means "never expires" and the expiry instant
// itself already counts as expired:
//
//	if security.IsTokenExpired(set.ExpiresAt, clock.Now()) {
//	    // refresh or re-authorize
//	}
//
// # Audit Logging
//
// The Auditor records token lifecycle events (issued, refreshed, revoked,
// cleared) and authentication failures through log/slog. Tokens are never
// written to logs; events carry a 16 character SHA-256 fingerprint instead,
// which is enough to correlate events for the same credential.
//
//	auditor := security.NewAuditor(logger, true)
//	auditor.LogTokenRefreshed(clientID, newAccessToken, rotated)
//
// # Request Correlation
//
// Every outbound API call carries an X-Request-ID. Callers may pin one with
// WithRequestID; otherwise GenerateRequestID supplies a UUID. Request IDs
// returned by the API are passed through SanitizeRequestID before they reach
// logs or traces.
package security
