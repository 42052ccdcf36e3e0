package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names Canva uses to report quota
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderLimit     = "X-RateLimit-Limit"
)

// Unknown marks a quota field whose header was absent or unparsable
const Unknown = -1

// nearLimitRatio is the used fraction above which IsNearLimit reports true
const nearLimitRatio = 0.8

// Info is the quota reported by the server on a single response
type Info struct {
	// Remaining is the number of requests left in the window, or Unknown
	Remaining int
	// Limit is the number of requests allowed in the window, or Unknown
	Limit int
	// ResetAt is when the window resets; zero if unknown
	ResetAt time.Time
}

// ParseInfo reads quota headers from a response. Missing or malformed
// headers leave the corresponding field unknown.
func ParseInfo(h http.Header) Info {
	info := Info{
		Remaining: parseCount(h.Get(HeaderRemaining)),
		Limit:     parseCount(h.Get(HeaderLimit)),
	}
	if v := strings.TrimSpace(h.Get(HeaderReset)); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.ResetAt = time.Unix(ts, 0).UTC()
		}
	}
	return info
}

func parseCount(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	n, err := strconv.ParseUint(v, 10, 31)
	if err != nil {
		return Unknown
	}
	return int(n)
}

// IsZero reports whether no quota header was present
func (i Info) IsZero() bool {
	return i.Remaining == Unknown && i.Limit == Unknown && i.ResetAt.IsZero()
}

// IsNearLimit reports whether more than 80% of the window's quota is used.
// It is false when either count is unknown.
func (i Info) IsNearLimit() bool {
	if i.Remaining == Unknown || i.Limit <= 0 || i.Remaining > i.Limit {
		return false
	}
	used := float64(i.Limit-i.Remaining) / float64(i.Limit)
	return used > nearLimitRatio
}

// TimeUntilReset returns the time left until the window resets.
// ok is false when the reset time is unknown or already passed.
func (i Info) TimeUntilReset() (time.Duration, bool) {
	return i.timeUntilResetAt(time.Now())
}

func (i Info) timeUntilResetAt(now time.Time) (time.Duration, bool) {
	if i.ResetAt.IsZero() || !i.ResetAt.After(now) {
		return 0, false
	}
	return i.ResetAt.Sub(now), true
}
