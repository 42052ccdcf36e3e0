package security

import (
	"context"
	"regexp"

	"github.com/google/uuid"
)

// requestIDContextKey is the context key for storing request IDs
type requestIDContextKey struct{}

// RequestIDHeader is the HTTP header carrying request IDs in both directions
const RequestIDHeader = "X-Request-ID"

// requestIDPattern validates request IDs before they are logged or forwarded.
// Allows: alphanumeric, hyphens, underscores (1-128 chars).
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// GenerateRequestID generates a random UUIDv4 request ID for outbound calls.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return requestID
	}
	return ""
}

// SanitizeRequestID returns requestID if it only contains safe characters,
// otherwise the empty string. Response headers are untrusted input; this keeps
// CRLF and oversized values out of logs and span attributes.
func SanitizeRequestID(requestID string) string {
	if !requestIDPattern.MatchString(requestID) {
		return ""
	}
	return requestID
}
