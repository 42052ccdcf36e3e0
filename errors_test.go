package canva

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "coded error",
			err:  &APIError{StatusCode: http.StatusNotFound, Code: ErrorCodeNotFound, Message: "design not found"},
			want: "canva API error: NOT_FOUND - design not found (status 404)",
		},
		{
			name: "with request id",
			err:  &APIError{StatusCode: http.StatusForbidden, Code: ErrorCodeForbidden, Message: "no", RequestID: "r1"},
			want: "canva API error: FORBIDDEN - no (status 403) request_id=r1",
		},
		{
			name: "bare status",
			err:  &APIError{StatusCode: http.StatusBadGateway},
			want: "canva API error: HTTP 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
		wantBody string
	}{
		{"canva document", `{"code":"CONFLICT","message":"exists"}`, ErrorCodeConflict, ""},
		{"empty code", `{"message":"no code"}`, "", `{"message":"no code"}`},
		{"html", "<html>bad gateway</html>", "", "<html>bad gateway</html>"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newAPIError(http.StatusConflict, "rid", []byte(tt.body))
			if err.Code != tt.wantCode || err.Body != tt.wantBody {
				t.Errorf("newAPIError() = %+v", err)
			}
		})
	}
}

func TestNewAPIError_TruncatesBody(t *testing.T) {
	err := newAPIError(http.StatusBadGateway, "", []byte(strings.Repeat("x", 4096)))
	if len(err.Body) > maxErrorBodyLength+3 {
		t.Errorf("Body length = %d, want at most %d", len(err.Body), maxErrorBodyLength+3)
	}
}

func TestErrorCode_IsKnown(t *testing.T) {
	for _, code := range []ErrorCode{ErrorCodeInvalidRequest, ErrorCodeServiceUnavailable, ErrorCodeTooManyRequests} {
		if !code.IsKnown() {
			t.Errorf("%s should be known", code)
		}
	}
	if ErrorCode("design_title_invalid").IsKnown() {
		t.Error("unknown code reported as known")
	}
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("failed to list designs: %w", &APIError{StatusCode: http.StatusNotFound})

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsUnauthorized(wrapped) || IsRateLimited(wrapped) {
		t.Error("wrong classification")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain error is not an API error")
	}
	if _, ok := AsAPIError(nil); ok {
		t.Error("AsAPIError(nil) should be false")
	}
}
