package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ClientOptions configures an outgoing HTTP client.
type ClientOptions struct {
	Timeout    time.Duration
	Transport  http.RoundTripper
	Retry      RetryOptions
	Breaker    *CircuitBreaker
	ShouldTrip BreakerDecider
	// Tokens enables per-request bearer stamping.
	Tokens TokenSource
	// Tracer enables client spans when non-nil.
	Tracer trace.Tracer
}

// DefaultClientOptions returns a baseline client configuration.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 30 * time.Second}
}

// NewClient builds an http.Client. From the outside in, a request passes
// tracing, request id, bearer stamping, the breaker, then retries.
func NewClient(options ClientOptions) *http.Client {
	transport := baseOrDefault(options.Transport)

	if options.Retry.MaxRetries > 0 {
		transport = &RetryRoundTripper{Base: transport, Options: options.Retry}
	}
	if options.Breaker != nil {
		transport = &BreakerRoundTripper{Base: transport, Breaker: options.Breaker, ShouldTrip: options.ShouldTrip}
	}
	if options.Tokens != nil {
		transport = &BearerRoundTripper{Base: transport, Tokens: options.Tokens}
	}
	transport = &RequestIDRoundTripper{Base: transport}
	if options.Tracer != nil {
		transport = &TraceRoundTripper{Base: transport, Tracer: options.Tracer}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   options.Timeout,
	}
}
