package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/giantswarm/canva-connect/instrumentation"
)

const (
	// DefaultRequestsPerMinute is used when a non-positive quota is requested
	DefaultRequestsPerMinute = 60

	// ConservativeRequestsPerMinute is the quota of Conservative and Default
	ConservativeRequestsPerMinute = 30

	// PermissiveRequestsPerMinute is the quota of Permissive
	PermissiveRequestsPerMinute = 100
)

// ErrWaitAborted is returned by WaitForRequest when no slot was granted
// before the context ended or could not be granted before its deadline.
var ErrWaitAborted = errors.New("rate limit wait aborted")

// APIRateLimiter is a token bucket shared by every outbound request.
// It is safe for concurrent use and holds no lock while a caller waits.
type APIRateLimiter struct {
	limiter           *rate.Limiter
	requestsPerMinute int
	logger            *slog.Logger
	instrumentation   *instrumentation.Instrumentation
	tracer            trace.Tracer

	// Statistics
	immediate   atomic.Int64
	waited      atomic.Int64
	aborted     atomic.Int64
	totalWaitNs atomic.Int64
}

// Option configures an APIRateLimiter
type Option func(*APIRateLimiter)

// WithLogger sets the logger used for wait and configuration messages
func WithLogger(logger *slog.Logger) Option {
	return func(l *APIRateLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithInstrumentation records wait metrics and spans
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(l *APIRateLimiter) {
		if inst != nil {
			l.instrumentation = inst
		}
	}
}

// New creates a limiter allowing requestsPerMinute requests per minute with a
// burst of the same size. A non-positive quota falls back to DefaultRequestsPerMinute.
func New(requestsPerMinute int, opts ...Option) *APIRateLimiter {
	l := &APIRateLimiter{
		logger:          slog.Default(),
		instrumentation: instrumentation.NewNoop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if requestsPerMinute <= 0 {
		l.logger.Warn("Invalid requests per minute, using default",
			"requested", requestsPerMinute,
			"default", DefaultRequestsPerMinute)
		requestsPerMinute = DefaultRequestsPerMinute
	}

	l.requestsPerMinute = requestsPerMinute
	l.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute)
	l.tracer = l.instrumentation.Tracer("ratelimit")
	return l
}

// Conservative creates a limiter allowing 30 requests per minute
func Conservative(opts ...Option) *APIRateLimiter {
	return New(ConservativeRequestsPerMinute, opts...)
}

// Permissive creates a limiter allowing 100 requests per minute
func Permissive(opts ...Option) *APIRateLimiter {
	return New(PermissiveRequestsPerMinute, opts...)
}

// Default creates the conservative limiter
func Default(opts ...Option) *APIRateLimiter {
	return Conservative(opts...)
}

// RequestsPerMinute returns the configured quota
func (l *APIRateLimiter) RequestsPerMinute() int {
	return l.requestsPerMinute
}

// WaitForRequest blocks until a request slot is available or ctx is done.
// On success exactly one slot has been consumed.
func (l *APIRateLimiter) WaitForRequest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		l.aborted.Add(1)
		return fmt.Errorf("%w: %w", ErrWaitAborted, err)
	}

	if l.limiter.Allow() {
		l.immediate.Add(1)
		return nil
	}

	ctx, span := l.tracer.Start(ctx, "ratelimit.wait")
	defer span.End()

	l.logger.Debug("Waiting for rate limit slot", "requests_per_minute", l.requestsPerMinute)

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		l.aborted.Add(1)
		reason := "deadline"
		if ctxErr := ctx.Err(); ctxErr != nil {
			reason = ctxErr.Error()
		}
		l.instrumentation.Metrics().RecordRateLimitRejected(ctx, reason)
		instrumentation.RecordError(span, err)
		return fmt.Errorf("%w: %w", ErrWaitAborted, err)
	}
	waited := time.Since(start)

	l.waited.Add(1)
	l.totalWaitNs.Add(int64(waited))
	l.instrumentation.Metrics().RecordRateLimitWait(ctx, waited)
	instrumentation.SetSpanAttributes(span, attribute.Int64(instrumentation.AttrRateLimitWaited, waited.Milliseconds()))
	instrumentation.SetSpanSuccess(span)

	return nil
}

// CanMakeRequest reports whether a slot is available right now without consuming it.
// The answer may be stale by the time the caller acts on it.
func (l *APIRateLimiter) CanMakeRequest() bool {
	return l.limiter.Tokens() >= 1
}

// TryAcquire consumes a slot if one is available right now.
func (l *APIRateLimiter) TryAcquire() bool {
	if l.limiter.Allow() {
		l.immediate.Add(1)
		return true
	}
	return false
}

// Stats holds limiter statistics
type Stats struct {
	RequestsPerMinute int
	ImmediateGrants   int64
	DelayedGrants     int64
	Aborted           int64
	TotalWait         time.Duration
}

// Stats returns a snapshot of limiter statistics
func (l *APIRateLimiter) Stats() Stats {
	return Stats{
		RequestsPerMinute: l.requestsPerMinute,
		ImmediateGrants:   l.immediate.Load(),
		DelayedGrants:     l.waited.Load(),
		Aborted:           l.aborted.Load(),
		TotalWait:         time.Duration(l.totalWaitNs.Load()),
	}
}
