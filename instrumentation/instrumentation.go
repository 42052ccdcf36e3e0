package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName is used when Config.ServiceName is empty
	DefaultServiceName = "canva-connect"

	// DefaultServiceVersion is the default service version used when none is provided
	DefaultServiceVersion = "unknown"

	scopePrefix = "github.com/giantswarm/canva-connect/"
)

// Config holds instrumentation configuration
type Config struct {
	// ServiceName is the name of the service (e.g., "canva-connect", "my-canva-app")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled controls whether instrumentation is active
	// When false, uses no-op providers (zero overhead)
	Enabled bool

	// TracerProvider is used when Enabled is true.
	// If nil, the global provider from otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// MeterProvider is used when Enabled is true.
	// If nil, the global provider from otel.GetMeterProvider() is used.
	MeterProvider metric.MeterProvider

	// Resource allows custom resource attributes
	// If nil, default resource is created with service name and version
	Resource *resource.Resource
}

// Instrumentation provides OpenTelemetry instrumentation components
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	metrics *Metrics

	// Shutdown functions (must be registered during New() only, not thread-safe after initialization)
	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates a new instrumentation instance
func New(config Config) (*Instrumentation, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}

	var res *resource.Resource
	var err error
	if config.Resource != nil {
		res = config.Resource
	} else {
		res, err = resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
	}

	inst := &Instrumentation{
		config:   config,
		resource: res,
	}

	if config.Enabled {
		inst.initializeProviders()
	} else {
		inst.meterProvider = noop.NewMeterProvider()
		inst.tracerProvider = tracenoop.NewTracerProvider()
	}

	inst.metrics, err = newMetrics(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return inst, nil
}

// NewNoop returns instrumentation backed by no-op providers.
// It never fails and is what components fall back to when none is configured.
func NewNoop() *Instrumentation {
	inst := &Instrumentation{
		config:         Config{ServiceName: DefaultServiceName, ServiceVersion: DefaultServiceVersion},
		meterProvider:  noop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	// The noop meter never returns errors.
	inst.metrics, _ = newMetrics(inst)
	return inst
}

// initializeProviders picks the configured providers, falling back to the
// process-wide ones registered with otel.SetTracerProvider / otel.SetMeterProvider.
// Exporter setup is the caller's responsibility.
func (i *Instrumentation) initializeProviders() {
	i.tracerProvider = i.config.TracerProvider
	if i.tracerProvider == nil {
		i.tracerProvider = otel.GetTracerProvider()
	}
	i.meterProvider = i.config.MeterProvider
	if i.meterProvider == nil {
		i.meterProvider = otel.GetMeterProvider()
	}

	// SDK providers expose Shutdown; flush them on our Shutdown too.
	type shutdowner interface {
		Shutdown(context.Context) error
	}
	if s, ok := i.config.TracerProvider.(shutdowner); ok {
		i.shutdownFuncs = append(i.shutdownFuncs, s.Shutdown)
	}
	if s, ok := i.config.MeterProvider.(shutdowner); ok {
		i.shutdownFuncs = append(i.shutdownFuncs, s.Shutdown)
	}
}

// Shutdown gracefully shuts down all instrumentation providers
// This should be called when the application is terminating
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var shutdownErr error

	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			if err := fn(ctx); err != nil {
				// Capture first error, but continue shutting down other components
				if shutdownErr == nil {
					shutdownErr = err
				}
			}
		}
	})

	return shutdownErr
}

// Meter returns a named meter for the given scope
// Scopes are layer names like "auth", "api", "ratelimit", "store"
// The full name will be "github.com/giantswarm/canva-connect/{scope}"
func (i *Instrumentation) Meter(scope string) metric.Meter {
	return i.meterProvider.Meter(scopePrefix + scope)
}

// Tracer returns a named tracer for the given scope
// The full name will be "github.com/giantswarm/canva-connect/{scope}"
func (i *Instrumentation) Tracer(scope string) trace.Tracer {
	return i.tracerProvider.Tracer(scopePrefix + scope)
}

// Metrics returns the metrics holder for recording metric values
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// Resource returns the resource describing this service
func (i *Instrumentation) Resource() *resource.Resource {
	return i.resource
}

// TracerProvider returns the underlying tracer provider
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	return i.tracerProvider
}

// MeterProvider returns the underlying meter provider
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

// TokenPresenceCallback reports 1 when a token set is held and 0 otherwise
type TokenPresenceCallback func() int64

// RegisterTokenPresenceCallback registers a callback for the token presence gauge.
// Token stores call this once when instrumentation is attached.
//
// Example:
//
//	inst.RegisterTokenPresenceCallback(func() int64 {
//	    if store.HasTokenSet() {
//	        return 1
//	    }
//	    return 0
//	})
func (i *Instrumentation) RegisterTokenPresenceCallback(cb TokenPresenceCallback) (metric.Registration, error) {
	if i.meterProvider == nil {
		return nil, fmt.Errorf("meter provider not initialized")
	}
	if cb == nil {
		return nil, fmt.Errorf("token presence callback is nil")
	}

	return i.Meter("store").RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(i.metrics.TokenPresent, cb())
			return nil
		},
		i.metrics.TokenPresent,
	)
}
