package auth

import (
	"errors"
	"fmt"

	"github.com/giantswarm/canva-connect/internal/util"
)

// ErrAuthentication matches every *AuthError via errors.Is
var ErrAuthentication = errors.New("authentication failed")

var (
	// ErrNoValidToken means no usable access token is held and none could be obtained.
	// Callers should restart the authorization flow.
	ErrNoValidToken = errors.New("no valid access token available")

	// ErrNoTokenSet means a refresh was attempted with an empty store
	ErrNoTokenSet = errors.New("no token set stored")

	// ErrNoRefreshToken means a refresh was attempted without a refresh token
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrInvalidPKCE means the PKCE parameters passed to an exchange are missing or inconsistent
	ErrInvalidPKCE = errors.New("invalid PKCE parameters")

	// ErrProviderRejected wraps a non-success response from the provider
	ErrProviderRejected = errors.New("provider rejected request")
)

// maxErrorBodyLength bounds how much of a provider body is kept in error strings
const maxErrorBodyLength = 512

// AuthError is the authentication category: credentials rejected by the
// provider, or no usable credential held locally.
type AuthError struct {
	// Op is the client operation, e.g. "exchange_code" or "refresh_token"
	Op string
	// StatusCode is the provider's HTTP status, zero for local failures
	StatusCode int
	// Body is the provider's raw response body, if any
	Body string
	// Err is the underlying cause
	Err error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + util.SafeTruncate(e.Body, maxErrorBodyLength)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAuthentication) true for every AuthError
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthentication
}

// IsAuthError reports whether err is in the authentication category
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

func newAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Err: err}
}

func newProviderError(op string, statusCode int, body []byte) *AuthError {
	return &AuthError{
		Op:         op,
		StatusCode: statusCode,
		Body:       string(body),
		Err:        ErrProviderRejected,
	}
}
