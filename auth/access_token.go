package auth

import "log/slog"

const redacted = "[REDACTED]"

// AccessToken is a bearer credential for the Canva Connect API.
// Formatting it with %v, %s or %#v, or logging it with slog, never reveals the value.
type AccessToken struct {
	value string
}

// NewAccessToken wraps a raw token value
func NewAccessToken(value string) AccessToken {
	return AccessToken{value: value}
}

// Value returns the raw token. Only use it to build a request.
func (t AccessToken) Value() string {
	return t.value
}

// AuthorizationHeader returns the Authorization header value ("Bearer <token>")
func (t AccessToken) AuthorizationHeader() string {
	return "Bearer " + t.value
}

// IsZero reports whether the token is empty
func (t AccessToken) IsZero() bool {
	return t.value == ""
}

func (t AccessToken) String() string {
	return redacted
}

// GoString keeps %#v from printing the value
func (t AccessToken) GoString() string {
	return "auth.AccessToken{" + redacted + "}"
}

// LogValue implements slog.LogValuer
func (t AccessToken) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalText implements encoding.TextMarshaler so the value never ends up in JSON output
func (t AccessToken) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
