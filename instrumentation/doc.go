// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the
// Canva Connect client.
//
// Every layer of the client records through one Instrumentation value:
//   - Metrics: counters, histograms and a gauge for OAuth and API activity
//   - Traces: spans around provider calls, rate-limit waits and API requests
//
// # Quick Start
//
// Instrumentation does not configure exporters. Pass SDK providers in, or
// register them globally with otel.SetTracerProvider / otel.SetMeterProvider:
//
//	import (
//		sdktrace "go.opentelemetry.io/otel/sdk/trace"
//		"github.com/giantswarm/canva-connect/instrumentation"
//	)
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-canva-app",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	client, err := auth.NewClient(cfg, auth.WithInstrumentation(inst))
//
// With Enabled false (the zero value) no-op providers are used.
//
// # Available Metrics
//
// API:
//   - canva.api.requests.total{method, endpoint, status}
//   - canva.api.request.duration{endpoint} - milliseconds
//
// OAuth:
//   - oauth.authorization.started{client_id}
//   - oauth.code.exchanged{client_id, pkce_method}
//   - oauth.token.refreshed{client_id, rotated, deduplicated}
//   - oauth.token.revoked{client_id, store_cleared}
//   - oauth.token.introspected{client_id, active}
//   - oauth.auth.failures{operation}
//
// Rate limiting:
//   - canva.rate_limit.waits
//   - canva.rate_limit.wait.duration - milliseconds
//   - canva.rate_limit.rejected{reason}
//
// Token store:
//   - oauth.store.token_present - 1 when a token set is held
//
// Provider:
//   - provider.api.calls.total{provider, operation, status}
//   - provider.api.duration{provider, operation} - milliseconds
//   - provider.api.errors.total{provider, operation, error_type}
//
// # Security
//
// Span attributes and metric labels never carry token values, authorization
// codes, PKCE verifiers or client secrets. Use presence flags instead.
package instrumentation
