package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantRemaining int
		wantLimit     int
		wantReset     time.Time
	}{
		{
			name: "all headers",
			headers: map[string]string{
				"X-RateLimit-Remaining": "12",
				"X-RateLimit-Limit":     "100",
				"X-RateLimit-Reset":     "1700000000",
			},
			wantRemaining: 12,
			wantLimit:     100,
			wantReset:     time.Unix(1700000000, 0).UTC(),
		},
		{
			name:          "no headers",
			headers:       map[string]string{},
			wantRemaining: Unknown,
			wantLimit:     Unknown,
		},
		{
			name: "lowercase header names",
			headers: map[string]string{
				"x-ratelimit-remaining": "0",
				"x-ratelimit-limit":     "20",
			},
			wantRemaining: 0,
			wantLimit:     20,
		},
		{
			name: "malformed values",
			headers: map[string]string{
				"X-RateLimit-Remaining": "many",
				"X-RateLimit-Limit":     "-3",
				"X-RateLimit-Reset":     "tomorrow",
			},
			wantRemaining: Unknown,
			wantLimit:     Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			info := ParseInfo(h)
			if info.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", info.Remaining, tt.wantRemaining)
			}
			if info.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", info.Limit, tt.wantLimit)
			}
			if !info.ResetAt.Equal(tt.wantReset) {
				t.Errorf("ResetAt = %v, want %v", info.ResetAt, tt.wantReset)
			}
		})
	}
}

func TestInfo_IsZero(t *testing.T) {
	if !ParseInfo(http.Header{}).IsZero() {
		t.Error("info from empty headers should be zero")
	}
	if (Info{Remaining: 1, Limit: Unknown}).IsZero() {
		t.Error("info with remaining should not be zero")
	}
}

func TestInfo_IsNearLimit(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{"half used", Info{Remaining: 50, Limit: 100}, false},
		{"exactly 80 percent used", Info{Remaining: 20, Limit: 100}, false},
		{"81 percent used", Info{Remaining: 19, Limit: 100}, true},
		{"exhausted", Info{Remaining: 0, Limit: 100}, true},
		{"unknown remaining", Info{Remaining: Unknown, Limit: 100}, false},
		{"unknown limit", Info{Remaining: 5, Limit: Unknown}, false},
		{"zero limit", Info{Remaining: 0, Limit: 0}, false},
		{"remaining above limit", Info{Remaining: 150, Limit: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.IsNearLimit(); got != tt.want {
				t.Errorf("IsNearLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInfo_TimeUntilReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		reset  time.Time
		want   time.Duration
		wantOK bool
	}{
		{"future reset", now.Add(30 * time.Second), 30 * time.Second, true},
		{"reset now", now, 0, false},
		{"past reset", now.Add(-time.Minute), 0, false},
		{"unknown reset", time.Time{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Info{Remaining: Unknown, Limit: Unknown, ResetAt: tt.reset}
			got, ok := info.timeUntilResetAt(now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("timeUntilResetAt() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
