package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id on outgoing calls.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID stores id on ctx for propagation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestID returns a fresh correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDRoundTripper sets X-Request-ID from the context, or a new id.
type RequestIDRoundTripper struct {
	Base http.RoundTripper
}

// RoundTrip stamps a copy of req with a request id when it has none.
func (r *RequestIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	base := baseOrDefault(r.Base)
	if req.Header.Get(RequestIDHeader) != "" {
		return base.RoundTrip(req)
	}

	id := RequestIDFromContext(req.Context())
	if id == "" {
		id = NewRequestID()
	}
	stamped := req.Clone(req.Context())
	stamped.Header.Set(RequestIDHeader, id)
	return base.RoundTrip(stamped)
}
