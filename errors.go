package canva

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/giantswarm/canva-connect/internal/util"
)

// ErrorCode is the code field of a Canva API error response. Codes this
// package does not know are kept verbatim.
type ErrorCode string

// Canva API error codes as constants
const (
	ErrorCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeMethodNotAllowed    ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorCodeConflict            ErrorCode = "CONFLICT"
	ErrorCodeUnprocessableEntity ErrorCode = "UNPROCESSABLE_ENTITY"
	ErrorCodeTooManyRequests     ErrorCode = "TOO_MANY_REQUESTS"
	ErrorCodeInternalServerError ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrorCodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
)

var knownErrorCodes = map[ErrorCode]bool{
	ErrorCodeInvalidRequest:      true,
	ErrorCodeUnauthorized:        true,
	ErrorCodeForbidden:           true,
	ErrorCodeNotFound:            true,
	ErrorCodeMethodNotAllowed:    true,
	ErrorCodeConflict:            true,
	ErrorCodeUnprocessableEntity: true,
	ErrorCodeTooManyRequests:     true,
	ErrorCodeInternalServerError: true,
	ErrorCodeServiceUnavailable:  true,
}

// IsKnown reports whether c is one of the documented codes
func (c ErrorCode) IsKnown() bool {
	return knownErrorCodes[c]
}

// maxErrorBodyLength bounds the raw body kept on an APIError
const maxErrorBodyLength = 512

// APIError is a non-2xx response from the Canva API
type APIError struct {
	StatusCode int       // HTTP status code
	Code       ErrorCode // empty when the body was not a Canva error document
	Message    string
	RequestID  string // X-Request-ID of the response, for support tickets
	Body       string // raw body, truncated; set only when Code is empty
}

// Error implements the error interface
func (e *APIError) Error() string {
	var msg string
	if e.Code != "" {
		msg = fmt.Sprintf("canva API error: %s - %s (status %d)", e.Code, e.Message, e.StatusCode)
	} else {
		msg = fmt.Sprintf("canva API error: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	return msg
}

// errorDocument is the body of a Canva error response
type errorDocument struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newAPIError builds an APIError from a failed response. A body that is not
// a Canva error document still yields an error carrying the status.
func newAPIError(statusCode int, requestID string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		RequestID:  requestID,
	}

	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err == nil && doc.Code != "" {
		apiErr.Code = ErrorCode(doc.Code)
		apiErr.Message = doc.Message
		return apiErr
	}

	apiErr.Body = util.SafeTruncate(string(body), maxErrorBodyLength)
	return apiErr
}

// AsAPIError extracts an *APIError from err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && (apiErr.StatusCode == http.StatusNotFound || apiErr.Code == ErrorCodeNotFound)
}

// IsUnauthorized reports whether the API rejected the access token
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.Code == ErrorCodeUnauthorized)
}

// IsRateLimited reports whether the API answered 429
func IsRateLimited(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == ErrorCodeTooManyRequests)
}
