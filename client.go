package canva

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/canva-connect/auth"
	"github.com/giantswarm/canva-connect/instrumentation"
	"github.com/giantswarm/canva-connect/internal/util"
	"github.com/giantswarm/canva-connect/ratelimit"
	"github.com/giantswarm/canva-connect/security"
)

const (
	// DefaultBaseURL is the Canva Connect REST API root
	DefaultBaseURL = "https://api.canva.com/rest/v1"

	// DefaultUserAgent identifies this client to Canva
	DefaultUserAgent = "canva-connect-go/0.1.0"

	// UploadMetadataHeader carries asset metadata on binary uploads
	UploadMetadataHeader = "Asset-Upload-Metadata"

	// DefaultTimeout bounds a single API round-trip
	DefaultTimeout = 60 * time.Second

	// maxErrorResponseSize bounds error bodies read into memory
	maxErrorResponseSize = 64 << 10
)

// AccessTokenProvider supplies the bearer token for each request.
// *auth.Client implements it, refreshing expired tokens as needed.
type AccessTokenProvider interface {
	GetAccessToken(ctx context.Context) (auth.AccessToken, error)
}

// Client sends authenticated, rate-limited requests to the Canva Connect API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	tokens     AccessTokenProvider
	httpClient *http.Client
	limiter    *ratelimit.APIRateLimiter
	logger     *slog.Logger
	auditor    *security.Auditor

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	mu            sync.RWMutex
	lastRateLimit ratelimit.Info
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = util.NormalizeURL(baseURL)
	}
}

// WithRateLimiter replaces the default limiter. Share one limiter between
// clients that draw on the same Canva quota.
func WithRateLimiter(limiter *ratelimit.APIRateLimiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstrumentation enables spans and metrics
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(c *Client) {
		if inst != nil {
			c.instrumentation = inst
		}
	}
}

// WithAuditor records rate limit exhaustion warnings as security events
func WithAuditor(auditor *security.Auditor) Option {
	return func(c *Client) {
		c.auditor = auditor
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient creates an API client drawing tokens from provider. Without
// WithRateLimiter it gets its own limiter at the default rate.
func NewClient(provider AccessTokenProvider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("access token provider is required")
	}

	c := &Client{
		baseURL:         DefaultBaseURL,
		userAgent:       DefaultUserAgent,
		tokens:          provider,
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		logger:          slog.Default(),
		instrumentation: instrumentation.NewNoop(),
		lastRateLimit:   ratelimit.Info{Remaining: ratelimit.Unknown, Limit: ratelimit.Unknown},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Default(
			ratelimit.WithLogger(c.logger),
			ratelimit.WithInstrumentation(c.instrumentation),
		)
	}
	c.tracer = c.instrumentation.Tracer("api")

	return c, nil
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimiter returns the limiter every request waits on
func (c *Client) RateLimiter() *ratelimit.APIRateLimiter {
	return c.limiter
}

// LastRateLimitInfo returns the rate limit headers of the most recent
// response that carried any
func (c *Client) LastRateLimitInfo() ratelimit.Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRateLimit
}

// Get sends a GET request. The caller must close the response body.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put sends body as JSON
func (c *Client) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch sends body as JSON
func (c *Client) Patch(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// GetJSON sends a GET request and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends in as JSON and decodes the JSON response into out
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// PatchJSON sends in as JSON and decodes the JSON response into out
func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out)
}

// UploadFile posts raw bytes as application/octet-stream. metadata, if
// non-empty, is sent in the Asset-Upload-Metadata header.
func (c *Client) UploadFile(ctx context.Context, path string, data io.Reader, metadata string) (*http.Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/octet-stream")
	if metadata != "" {
		header.Set(UploadMetadataHeader, metadata)
	}
	return c.send(ctx, http.MethodPost, path, data, header)
}

// Do sends a request with an optional JSON body. Non-2xx responses are
// returned as *APIError with the body consumed.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	header := http.Header{}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, method, path, reader, header)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send waits for a rate limiter slot, attaches the bearer token and
// dispatches the request
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "api.request")
	defer span.End()
	instrumentation.AddHTTPAttributes(span, method, path, 0)

	if err := c.limiter.WaitForRequest(ctx); err != nil {
		err = fmt.Errorf("failed to wait for rate limiter: %w", err)
		instrumentation.RecordError(span, err)
		return nil, err
	}

	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		err = fmt.Errorf("failed to get access token: %w", err)
		instrumentation.RecordError(span, err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		instrumentation.RecordError(span, err)
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Authorization", token.AuthorizationHeader())
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(security.RequestIDHeader, outboundRequestID(ctx))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	durationMs := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		c.instrumentation.Metrics().RecordHTTPRequest(ctx, method, path, 0, durationMs)
		err = fmt.Errorf("failed to send %s %s: %w", method, path, err)
		instrumentation.RecordError(span, err)
		c.logger.Error("Canva API request failed", "method", method, "path", path, "error", err)
		return nil, err
	}

	c.instrumentation.Metrics().RecordHTTPRequest(ctx, method, path, resp.StatusCode, durationMs)
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrHTTPStatusCode, resp.StatusCode))

	requestID := resp.Header.Get(security.RequestIDHeader)
	if requestID != "" {
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrRequestID, requestID))
	}
	c.observeRateLimit(span, resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorResponseSize))
		apiErr := newAPIError(resp.StatusCode, requestID, errBody)

		if apiErr.Code != "" {
			instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrAPIErrorCode, string(apiErr.Code)))
		}
		instrumentation.RecordError(span, apiErr)
		c.logger.Warn("Canva API request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"request_id", requestID)
		return nil, apiErr
	}

	instrumentation.SetSpanSuccess(span)
	c.logger.Debug("Canva API request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID)

	return resp, nil
}

// observeRateLimit records the server's view of the quota and warns when it
// is nearly spent
func (c *Client) observeRateLimit(span trace.Span, header http.Header) {
	info := ratelimit.ParseInfo(header)
	if info.IsZero() {
		return
	}

	c.mu.Lock()
	c.lastRateLimit = info
	c.mu.Unlock()

	instrumentation.AddRateLimitAttributes(span, info.Remaining, info.Limit)
	if info.IsNearLimit() {
		c.auditor.LogRateLimitNearExhaustion(info.Remaining, info.Limit)
		c.logger.Warn("Canva API rate limit nearly exhausted",
			"remaining", info.Remaining,
			"limit", info.Limit,
			"reset_at", info.ResetAt)
	}
}

func outboundRequestID(ctx context.Context) string {
	if id := security.SanitizeRequestID(security.GetRequestID(ctx)); id != "" {
		return id
	}
	return security.GenerateRequestID()
}
