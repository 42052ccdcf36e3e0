package auth

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestTokenSet_IsExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"never expires", time.Time{}, false},
		{"expires in the future", now.Add(time.Second), false},
		{"expires exactly now", now, true},
		{"expired one second ago", now.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := TokenSet{AccessToken: "at", ExpiresAt: tt.expiresAt}
			if got := set.IsExpiredAt(now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenSet_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	set := TokenSet{AccessToken: "at", ExpiresAt: now.Add(time.Minute)}

	if set.ExpiresWithin(now, 30*time.Second) {
		t.Error("ExpiresWithin(30s) = true for a token valid for a minute")
	}
	if !set.ExpiresWithin(now, 2*time.Minute) {
		t.Error("ExpiresWithin(2m) = false for a token valid for a minute")
	}
	if (TokenSet{}).ExpiresWithin(now, time.Hour) {
		t.Error("a token without expiry never expires")
	}
}

func TestTokenSetFromExchangeResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		resp          TokenExchangeResponse
		wantExpiresAt time.Time
		wantType      string
	}{
		{
			name:          "with expires_in",
			resp:          TokenExchangeResponse{AccessToken: "at", TokenType: "Bearer", ExpiresIn: int64Ptr(14400)},
			wantExpiresAt: now.Add(4 * time.Hour),
			wantType:      "Bearer",
		},
		{
			name:          "without expires_in never expires",
			resp:          TokenExchangeResponse{AccessToken: "at", TokenType: "Bearer"},
			wantExpiresAt: time.Time{},
			wantType:      "Bearer",
		},
		{
			name:          "zero expires_in is already expired",
			resp:          TokenExchangeResponse{AccessToken: "at", ExpiresIn: int64Ptr(0)},
			wantExpiresAt: now,
			wantType:      "Bearer",
		},
		{
			name:          "negative expires_in is already expired",
			resp:          TokenExchangeResponse{AccessToken: "at", ExpiresIn: int64Ptr(-10)},
			wantExpiresAt: now,
			wantType:      "Bearer",
		},
		{
			name:          "token type preserved",
			resp:          TokenExchangeResponse{AccessToken: "at", TokenType: "bearer"},
			wantExpiresAt: time.Time{},
			wantType:      "bearer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := TokenSetFromExchangeResponse(&tt.resp, now)
			if !set.ExpiresAt.Equal(tt.wantExpiresAt) {
				t.Errorf("ExpiresAt = %v, want %v", set.ExpiresAt, tt.wantExpiresAt)
			}
			if set.TokenType != tt.wantType {
				t.Errorf("TokenType = %q, want %q", set.TokenType, tt.wantType)
			}
			if set.AccessToken != tt.resp.AccessToken {
				t.Errorf("AccessToken = %q", set.AccessToken)
			}
		})
	}
}

func TestIntrospectionResponse_ExpiresAt(t *testing.T) {
	if !(&IntrospectionResponse{}).ExpiresAt().IsZero() {
		t.Error("ExpiresAt() should be zero without exp")
	}
	r := &IntrospectionResponse{Exp: 1700000000}
	if !r.ExpiresAt().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("ExpiresAt() = %v", r.ExpiresAt())
	}
}

func TestInt64Extra(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *int64
	}{
		{"json float", float64(3600), int64Ptr(3600)},
		{"form int64", int64(60), int64Ptr(60)},
		{"string", "120", int64Ptr(120)},
		{"zero", float64(0), int64Ptr(0)},
		{"absent", nil, nil},
		{"garbage string", "soon", nil},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := int64Extra(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("int64Extra(%v) = %d, want nil", tt.in, *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("int64Extra(%v) = %v, want %d", tt.in, got, *tt.want)
			}
		})
	}
}
