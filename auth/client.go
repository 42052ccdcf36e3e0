package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/giantswarm/canva-connect/instrumentation"
	"github.com/giantswarm/canva-connect/ratelimit"
	"github.com/giantswarm/canva-connect/security"
)

const (
	// DefaultHTTPTimeout bounds every provider round-trip when no HTTP client is supplied
	DefaultHTTPTimeout = 30 * time.Second

	providerName = "canva"

	// refreshFlightKey identifies the single in-flight implicit refresh per store
	refreshFlightKey = "refresh"
)

// Client drives the OAuth 2.0 authorization code flow with PKCE against
// Canva and keeps the resulting credentials in a TokenStore.
type Client struct {
	config      Config
	endpoint    Endpoint
	oauthConfig *oauth2.Config

	httpClient *http.Client
	logger     *slog.Logger
	store      *TokenStore
	limiter    *ratelimit.APIRateLimiter
	clock      clockwork.Clock
	auditor    *security.Auditor

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for provider calls
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEndpoint overrides the provider URLs (tests, proxies)
func WithEndpoint(endpoint Endpoint) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTokenStore makes the client share an existing store
func WithTokenStore(store *TokenStore) ClientOption {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithRateLimiter makes every provider call wait on the shared limiter
func WithRateLimiter(limiter *ratelimit.APIRateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithInstrumentation enables spans and metrics
func WithInstrumentation(inst *instrumentation.Instrumentation) ClientOption {
	return func(c *Client) {
		if inst != nil {
			c.instrumentation = inst
		}
	}
}

// WithAuditor records security events
func WithAuditor(auditor *security.Auditor) ClientOption {
	return func(c *Client) {
		c.auditor = auditor
	}
}

// WithClock sets the clock used to compute expiry. A store created by
// NewClient uses the same clock.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient creates a client with its own empty TokenStore unless WithTokenStore is given
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		config:          config.clone(),
		endpoint:        CanvaEndpoint,
		httpClient:      &http.Client{Timeout: DefaultHTTPTimeout},
		logger:          slog.Default(),
		clock:           clockwork.NewRealClock(),
		instrumentation: instrumentation.NewNoop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.endpoint.Validate(); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	if c.store == nil {
		c.store = NewTokenStore(WithStoreClock(c.clock), WithStoreLogger(c.logger))
		c.store.SetInstrumentation(c.instrumentation)
	}

	c.tracer = c.instrumentation.Tracer("auth")
	c.oauthConfig = &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.endpoint.AuthURL,
			TokenURL: c.endpoint.TokenURL,
			// Canva expects client credentials in the form body
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: c.config.RedirectURI,
		Scopes:      scopeStrings(c.config.Scopes),
	}

	return c, nil
}

// NewClientWithTokenStore creates a client sharing store with other clients
func NewClientWithTokenStore(config Config, store *TokenStore, opts ...ClientOption) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	return NewClient(config, append(opts, WithTokenStore(store))...)
}

// Config returns a copy of the client's configuration
func (c *Client) Config() Config {
	return c.config.clone()
}

// TokenStore returns the store backing this client
func (c *Client) TokenStore() *TokenStore {
	return c.store
}

// State reports the credential state of the store
func (c *Client) State() State {
	return c.store.state()
}

// AuthorizationURL builds the URL to send the user to, along with the PKCE
// pair whose verifier must be passed to ExchangeCodeWithPKCE. An empty state
// is omitted from the URL. The token store is not touched.
func (c *Client) AuthorizationURL(state string) (string, *PKCEParams, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", nil, err
	}

	authURL := c.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.CodeChallengeMethod),
	)

	c.instrumentation.Metrics().RecordAuthorizationStarted(context.Background(), c.config.ClientID)
	c.logger.Debug("Generated authorization URL",
		"client_id", c.config.ClientID,
		"scope", c.config.ScopesString(),
		"has_state", state != "")

	return authURL, pkce, nil
}

// GetAccessToken returns a usable access token, refreshing it first if it
// has expired and a refresh token is held. Concurrent callers sharing a store
// wait on a single refresh. An *AuthError wrapping ErrNoValidToken means the
// authorization flow must be restarted.
func (c *Client) GetAccessToken(ctx context.Context) (AccessToken, error) {
	if token, ok := c.store.GetValidAccessToken(); ok {
		return token, nil
	}

	if !c.store.HasRefreshToken() {
		c.auditor.LogAuthFailure(c.config.ClientID, opGetAccessToken, ErrNoValidToken.Error())
		return AccessToken{}, newAuthError(opGetAccessToken, ErrNoValidToken)
	}

	if err := c.refreshShared(ctx); err != nil {
		return AccessToken{}, err
	}

	if token, ok := c.store.GetValidAccessToken(); ok {
		return token, nil
	}
	return AccessToken{}, newAuthError(opGetAccessToken, ErrNoValidToken)
}

// refreshShared runs at most one refresh per store at a time. Late callers
// wait for the running one; each still honours its own ctx.
func (c *Client) refreshShared(ctx context.Context) error {
	led := false
	ch := c.store.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		led = true
		// Another flight may have finished between our check and joining.
		if _, ok := c.store.GetValidAccessToken(); ok {
			return nil, nil
		}
		// Detach from this caller's cancellation; other waiters depend on the result.
		_, err := c.RefreshToken(context.WithoutCancel(ctx))
		return nil, err
	})

	select {
	case res := <-ch:
		if !led {
			c.instrumentation.Metrics().RecordTokenRefresh(ctx, c.config.ClientID, false, true)
			c.logger.Debug("Joined in-flight token refresh", "client_id", c.config.ClientID)
		}
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for token refresh: %w", ctx.Err())
	}
}

// IsTokenValid reports whether a non-expired access token is held
func (c *Client) IsTokenValid() bool {
	_, ok := c.store.GetValidAccessToken()
	return ok
}

// ClearTokens discards held credentials without contacting the provider
func (c *Client) ClearTokens() {
	c.store.Clear()
	c.auditor.LogTokensCleared(c.config.ClientID)
	c.logger.Info("Cleared tokens", "client_id", c.config.ClientID)
}
