package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceOptions configures tracing middleware.
type TraceOptions struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
	SkipPaths  []string
}

// DefaultTraceOptions returns default tracing options.
func DefaultTraceOptions(tracer trace.Tracer) TraceOptions {
	return TraceOptions{
		Tracer:    tracer,
		SkipPaths: []string{"/metrics", "/healthz", "/events"},
	}
}

// Trace starts a server span per request, continuing any incoming trace.
func Trace(options TraceOptions) Middleware {
	propagator := options.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if options.Tracer == nil || shouldSkipPath(r.URL.Path, options.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := options.Tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			recorder := wrapRecorder(w)
			next.ServeHTTP(recorder, r.WithContext(ctx))

			if route := routePattern(r); route != "" {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}
			status := recorder.Status()
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.Int("http.response.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
			}
		})
	}
}

// routePattern returns the chi route that matched r, once routing is done.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
