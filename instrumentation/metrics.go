package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the Canva Connect client
type Metrics struct {
	// API Layer Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// OAuth Flow Metrics
	AuthorizationStarted metric.Int64Counter
	CodeExchanged        metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	TokenRevoked         metric.Int64Counter
	TokenIntrospected    metric.Int64Counter
	AuthFailures         metric.Int64Counter

	// Rate Limit Metrics
	RateLimitWaits        metric.Int64Counter
	RateLimitWaitDuration metric.Float64Histogram
	RateLimitRejected     metric.Int64Counter

	// Store Metrics
	TokenPresent metric.Int64ObservableGauge

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	apiMeter := inst.Meter("api")
	authMeter := inst.Meter("auth")
	rateLimitMeter := inst.Meter("ratelimit")
	storeMeter := inst.Meter("store")
	providerMeter := inst.Meter("provider")

	var err error
	m.HTTPRequestsTotal, err = apiMeter.Int64Counter(
		"canva.api.requests.total",
		metric.WithDescription("Total number of Canva Connect API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = apiMeter.Float64Histogram(
		"canva.api.request.duration",
		metric.WithDescription("Canva Connect API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.request.duration histogram: %w", err)
	}

	m.AuthorizationStarted, err = authMeter.Int64Counter(
		"oauth.authorization.started",
		metric.WithDescription("Number of authorization URLs generated"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization.started counter: %w", err)
	}

	m.CodeExchanged, err = authMeter.Int64Counter(
		"oauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = authMeter.Int64Counter(
		"oauth.token.refreshed",
		metric.WithDescription("Number of token refreshes, including callers that joined an in-flight refresh"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenRevoked, err = authMeter.Int64Counter(
		"oauth.token.revoked",
		metric.WithDescription("Number of tokens revoked"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.revoked counter: %w", err)
	}

	m.TokenIntrospected, err = authMeter.Int64Counter(
		"oauth.token.introspected",
		metric.WithDescription("Number of token introspections"),
		metric.WithUnit("{introspection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.introspected counter: %w", err)
	}

	m.AuthFailures, err = authMeter.Int64Counter(
		"oauth.auth.failures",
		metric.WithDescription("Number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth.failures counter: %w", err)
	}

	m.RateLimitWaits, err = rateLimitMeter.Int64Counter(
		"canva.rate_limit.waits",
		metric.WithDescription("Number of requests that had to wait for a rate limit slot"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.waits counter: %w", err)
	}

	m.RateLimitWaitDuration, err = rateLimitMeter.Float64Histogram(
		"canva.rate_limit.wait.duration",
		metric.WithDescription("Time spent waiting for a rate limit slot in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.wait.duration histogram: %w", err)
	}

	m.RateLimitRejected, err = rateLimitMeter.Int64Counter(
		"canva.rate_limit.rejected",
		metric.WithDescription("Number of rate limit waits abandoned because the context ended"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.rejected counter: %w", err)
	}

	m.TokenPresent, err = storeMeter.Int64ObservableGauge(
		"oauth.store.token_present",
		metric.WithDescription("Whether the token store currently holds a token set (1) or not (0)"),
		metric.WithUnit("{token_set}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.token_present gauge: %w", err)
	}

	m.ProviderAPICallsTotal, err = providerMeter.Int64Counter(
		"provider.api.calls.total",
		metric.WithDescription("Total number of OAuth provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.calls.total counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		"provider.api.duration",
		metric.WithDescription("OAuth provider call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.duration histogram: %w", err)
	}

	m.ProviderAPIErrors, err = providerMeter.Int64Counter(
		"provider.api.errors.total",
		metric.WithDescription("Total number of OAuth provider errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.errors.total counter: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordHTTPRequest records a Canva Connect API request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordAuthorizationStarted records an authorization URL being handed out
func (m *Metrics) RecordAuthorizationStarted(ctx context.Context, clientID string) {
	m.AuthorizationStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
	))
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, clientID, pkceMethod string) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("pkce_method", pkceMethod),
	))
}

// RecordTokenRefresh records a token refresh. deduplicated is true for
// callers that joined a refresh already in flight for the same store.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, clientID string, rotated, deduplicated bool) {
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("rotated", rotated),
		attribute.Bool("deduplicated", deduplicated),
	))
}

// RecordTokenRevocation records a token revocation
func (m *Metrics) RecordTokenRevocation(ctx context.Context, clientID string, storeCleared bool) {
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("store_cleared", storeCleared),
	))
}

// RecordTokenIntrospection records a token introspection
func (m *Metrics) RecordTokenIntrospection(ctx context.Context, clientID string, active bool) {
	m.TokenIntrospected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("active", active),
	))
}

// RecordAuthFailure records a failed authentication step
func (m *Metrics) RecordAuthFailure(ctx context.Context, operation string) {
	m.AuthFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordRateLimitWait records time spent blocked on the rate limiter
func (m *Metrics) RecordRateLimitWait(ctx context.Context, waited time.Duration) {
	m.RateLimitWaits.Add(ctx, 1)
	m.RateLimitWaitDuration.Record(ctx, float64(waited.Microseconds())/1000)
}

// RecordRateLimitRejected records a wait that ended because its context was done
func (m *Metrics) RecordRateLimitRejected(ctx context.Context, reason string) {
	m.RateLimitRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordProviderAPICall records an OAuth provider call
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", statusCode),
	}

	m.ProviderAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ProviderAPIDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))

	if err != nil {
		errorType := "unknown"
		if statusCode >= 400 && statusCode < 500 {
			errorType = "client_error"
		} else if statusCode >= 500 {
			errorType = "server_error"
		} else if statusCode == 0 {
			errorType = "transport_error"
		}

		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType),
		))
	}
}
