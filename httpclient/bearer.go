package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/shoenig/go-conceal"
)

// TokenSource yields the current access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (*conceal.Text, error)
}

// BearerRoundTripper stamps each request with the access token read from
// Tokens at send time. Requests go out unstamped when no token is available.
type BearerRoundTripper struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

// RoundTrip stamps a copy of req and forwards it.
func (b *BearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	base := baseOrDefault(b.Base)
	if b.Tokens == nil || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	token, err := b.Tokens.AccessToken(req.Context())
	if err != nil || token == nil || token.Unveil() == "" {
		return base.RoundTrip(req)
	}

	stamped := req.Clone(req.Context())
	stamped.Header.Set("Authorization", "Bearer "+token.Unveil())
	return base.RoundTrip(stamped)
}
