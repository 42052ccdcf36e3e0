// Package security provides security features for the Canva Connect client including
// token expiry checks, audit logging and request correlation.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with credential protection.
// Tokens are never logged; only a truncated SHA-256 fingerprint is recorded.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	ClientID  string
	TokenHash string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event. Safe to call on a nil Auditor.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"client_id", event.ClientID,
		"token_hash", event.TokenHash,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs when an authorization code was exchanged for a token
func (a *Auditor) LogTokenIssued(clientID, accessToken, scope string) {
	a.LogEvent(Event{
		Type:      EventTokenIssued,
		ClientID:  clientID,
		TokenHash: TokenFingerprint(accessToken),
		Details: map[string]any{
			"scope": scope,
		},
	})
}

// LogTokenRefreshed logs when an access token was refreshed
func (a *Auditor) LogTokenRefreshed(clientID, accessToken string, rotated bool) {
	a.LogEvent(Event{
		Type:      EventTokenRefreshed,
		ClientID:  clientID,
		TokenHash: TokenFingerprint(accessToken),
		Details: map[string]any{
			"rotated": rotated,
		},
	})
}

// LogTokenRevoked logs when a token was revoked at the provider
func (a *Auditor) LogTokenRevoked(clientID, token, tokenTypeHint string, storeCleared bool) {
	a.LogEvent(Event{
		Type:      EventTokenRevoked,
		ClientID:  clientID,
		TokenHash: TokenFingerprint(token),
		Details: map[string]any{
			"token_type_hint": tokenTypeHint,
			"store_cleared":   storeCleared,
		},
	})
}

// LogTokensCleared logs when locally held tokens were discarded without contacting the provider
func (a *Auditor) LogTokensCleared(clientID string) {
	a.LogEvent(Event{
		Type:     EventTokensCleared,
		ClientID: clientID,
	})
}

// LogAuthFailure logs a provider-rejected or locally unsatisfiable authentication step
func (a *Auditor) LogAuthFailure(clientID, operation, reason string) {
	a.LogEvent(Event{
		Type:     EventAuthFailure,
		ClientID: clientID,
		Details: map[string]any{
			"operation": operation,
			"reason":    reason,
		},
	})
}

// LogRateLimitNearExhaustion logs when the provider reports that most of the quota is used
func (a *Auditor) LogRateLimitNearExhaustion(remaining, limit int) {
	a.LogEvent(Event{
		Type: EventRateLimitNearExhaustion,
		Details: map[string]any{
			"remaining": remaining,
			"limit":     limit,
		},
	})
}

// TokenFingerprint creates a short SHA-256 fingerprint of a token for correlation in logs
func TokenFingerprint(token string) string {
	if token == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])[:16]
}
