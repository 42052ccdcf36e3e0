package security

import "time"

// IsTokenExpired reports whether a token with the given expiry is expired at now.
// A zero expiresAt means the token never expires. The boundary is inclusive:
// a token whose expiry equals now is already expired.
func IsTokenExpired(expiresAt, now time.Time) bool {
	if expiresAt.IsZero() {
		return false // No expiration
	}
	return !now.Before(expiresAt)
}

// IsTokenExpiringSoon reports whether a token will have expired by now+threshold.
func IsTokenExpiringSoon(expiresAt, now time.Time, threshold time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Add(threshold).Before(expiresAt)
}

// ExpiryFromExpiresIn converts a relative expires_in (seconds) into an absolute instant.
// A negative value is not a valid lifetime and yields the zero time.
func ExpiryFromExpiresIn(now time.Time, expiresIn int64) time.Time {
	if expiresIn < 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
