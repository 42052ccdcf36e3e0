package auth

import (
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/canva-connect/instrumentation"
)

// TokenStore holds at most one TokenSet and is shared by pointer between
// every Client built on it. All methods are safe for concurrent use.
type TokenStore struct {
	mu     sync.RWMutex
	set    TokenSet
	hasSet bool

	clock  clockwork.Clock
	logger *slog.Logger

	// refreshGroup deduplicates implicit refreshes across every client sharing this store
	refreshGroup singleflight.Group

	instMu       sync.Mutex
	registration metric.Registration
}

// StoreOption configures a TokenStore
type StoreOption func(*TokenStore)

// WithStoreClock sets the clock used for expiry checks
func WithStoreClock(clock clockwork.Clock) StoreOption {
	return func(s *TokenStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStoreLogger sets the store's logger
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *TokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTokenStore creates an empty store
func NewTokenStore(opts ...StoreOption) *TokenStore {
	s := &TokenStore{
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store replaces the current token set
func (s *TokenStore) Store(set TokenSet) {
	s.mu.Lock()
	s.set = set
	s.hasSet = true
	s.mu.Unlock()

	s.logger.Debug("Stored token set",
		"has_refresh_token", set.RefreshToken != "",
		"expires_at", set.ExpiresAt)
}

// Get returns a copy of the current token set
func (s *TokenStore) Get() (TokenSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set, s.hasSet
}

// GetValidAccessToken returns the access token if one is held and not expired
func (s *TokenStore) GetValidAccessToken() (AccessToken, bool) {
	set, ok := s.Get()
	if !ok || set.IsExpiredAt(s.clock.Now()) {
		return AccessToken{}, false
	}
	return set.BearerToken(), true
}

// HasRefreshToken reports whether the held set carries a refresh token
func (s *TokenStore) HasRefreshToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSet && s.set.RefreshToken != ""
}

// HasTokenSet reports whether any token set is held, expired or not
func (s *TokenStore) HasTokenSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSet
}

// Clear removes the current token set. Clearing an empty store is a no-op.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.set = TokenSet{}
	s.hasSet = false
	s.mu.Unlock()
}

// clearIfAccessToken clears the store only if it still holds accessToken.
// Returns whether it cleared.
func (s *TokenStore) clearIfAccessToken(accessToken string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSet || s.set.AccessToken != accessToken {
		return false
	}
	s.set = TokenSet{}
	s.hasSet = false
	return true
}

// replaceIfRefreshToken stores next only if the held set still carries
// refreshToken, so a refresh racing with Clear or a newer Store does not
// resurrect or overwrite credentials. Returns whether it stored.
func (s *TokenStore) replaceIfRefreshToken(refreshToken string, next TokenSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSet || s.set.RefreshToken != refreshToken {
		return false
	}
	s.set = next
	return true
}

// state classifies the held credential at the store's current time
func (s *TokenStore) state() State {
	set, ok := s.Get()
	switch {
	case !ok:
		return StateNoToken
	case !set.IsExpiredAt(s.clock.Now()):
		return StateValidToken
	case set.RefreshToken != "":
		return StateExpiredWithRefresh
	default:
		return StateExpiredNoRefresh
	}
}

// SetInstrumentation registers the token presence gauge. Calling it again
// replaces the previous registration.
func (s *TokenStore) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst == nil {
		return
	}

	s.instMu.Lock()
	defer s.instMu.Unlock()

	if s.registration != nil {
		if err := s.registration.Unregister(); err != nil {
			s.logger.Warn("Failed to unregister token presence callback", "error", err)
		}
		s.registration = nil
	}

	reg, err := inst.RegisterTokenPresenceCallback(func() int64 {
		if s.HasTokenSet() {
			return 1
		}
		return 0
	})
	if err != nil {
		s.logger.Warn("Failed to register token presence callback", "error", err)
		return
	}
	s.registration = reg
}
