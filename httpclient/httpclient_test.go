package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shoenig/go-conceal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	mu        sync.Mutex
	responses []int
	errs      []error
	requests  []*http.Request
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}

	status := http.StatusOK
	if idx < len(s.responses) {
		status = s.responses[idx]
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func noBackoff(int) time.Duration { return 0 }

func TestRetryRoundTripper(t *testing.T) {
	transport := &stubTransport{responses: []int{http.StatusServiceUnavailable, http.StatusOK}}
	retries := 0
	retry := RetryRoundTripper{
		Base: transport,
		Options: RetryOptions{
			MaxRetries: 1,
			Backoff:    noBackoff,
			OnRetry:    func(*http.Request, int, error, *http.Response) { retries++ },
		},
	}

	req, _ := http.NewRequest(http.MethodGet, "http://accounts.local/api/accounts/user/42", nil)
	resp, err := retry.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, transport.calls())
	assert.Equal(t, 1, retries)
}

func TestRetryRoundTripperSkipsPost(t *testing.T) {
	transport := &stubTransport{errs: []error{errors.New("network")}}
	retry := RetryRoundTripper{
		Base:    transport,
		Options: RetryOptions{MaxRetries: 3, Backoff: noBackoff},
	}

	req, _ := http.NewRequest(http.MethodPost, "http://accounts.local/api/accounts/create", strings.NewReader("{}"))
	_, err := retry.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, transport.calls())
}

func TestRetryRoundTripperNonReplayableBody(t *testing.T) {
	transport := &stubTransport{errs: []error{errors.New("network")}}
	retry := RetryRoundTripper{
		Base: transport,
		Options: RetryOptions{
			MaxRetries: 1,
			Backoff:    noBackoff,
			RetryIf:    func(*http.Request, *http.Response, error) bool { return true },
		},
	}

	req, _ := http.NewRequest(http.MethodPut, "http://example.com", io.NopCloser(strings.NewReader("body")))
	_, err := retry.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, transport.calls())
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(100*time.Millisecond, 300*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, backoff(1))
	assert.Equal(t, 200*time.Millisecond, backoff(2))
	assert.Equal(t, 300*time.Millisecond, backoff(3))
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	transport := &stubTransport{errs: []error{errors.New("fail"), nil}, responses: []int{0, http.StatusOK}}
	var states []string
	breaker := NewCircuitBreaker(CircuitBreakerOptions{
		MaxFailures:   1,
		ResetTimeout:  time.Minute,
		Now:           func() time.Time { return now },
		OnStateChange: func(state string) { states = append(states, state) },
	})
	wrapper := BreakerRoundTripper{Base: transport, Breaker: breaker}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := wrapper.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, breaker.State())

	_, err = wrapper.RoundTrip(req)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	resp, err := wrapper.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{BreakerOpen, BreakerHalfOpen, BreakerClosed}, states)
}

type tokenSource struct {
	mu    sync.Mutex
	token string
	err   error
}

func (s *tokenSource) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *tokenSource) AccessToken(context.Context) (*conceal.Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.token == "" {
		return nil, errors.New("not found")
	}
	return conceal.New(s.token), nil
}

func TestBearerRoundTripperReadsTokenPerRequest(t *testing.T) {
	transport := &stubTransport{}
	tokens := &tokenSource{}
	rt := &BearerRoundTripper{Base: transport, Tokens: tokens}

	send := func() string {
		req := httptest.NewRequest(http.MethodGet, "http://accounts.local/api/accounts/user/1", nil)
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		assert.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")
		return transport.requests[len(transport.requests)-1].Header.Get("Authorization")
	}

	assert.Empty(t, send())

	tokens.set("A1")
	assert.Equal(t, "Bearer A1", send())

	tokens.set("A2")
	assert.Equal(t, "Bearer A2", send())

	tokens.set("")
	assert.Empty(t, send())
}

func TestBearerRoundTripperStoreErrorSendsUnstamped(t *testing.T) {
	transport := &stubTransport{}
	rt := &BearerRoundTripper{Base: transport, Tokens: &tokenSource{err: errors.New("disk")}}

	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://x/", nil))
	require.NoError(t, err)
	assert.Empty(t, transport.requests[0].Header.Get("Authorization"))
}

func TestRequestIDRoundTripper(t *testing.T) {
	transport := &stubTransport{}
	rt := &RequestIDRoundTripper{Base: transport}

	ctx := WithRequestID(context.Background(), "req-1")
	req := httptest.NewRequest(http.MethodGet, "http://x/", nil).WithContext(ctx)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", transport.requests[0].Header.Get(RequestIDHeader))

	_, err = rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://x/", nil))
	require.NoError(t, err)
	assert.Len(t, transport.requests[1].Header.Get(RequestIDHeader), 36)
}

func TestNewClientStampsAgainstServer(t *testing.T) {
	var gotAuth, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		Timeout: time.Second,
		Tokens:  &tokenSource{token: "A1"},
		Breaker: NewCircuitBreaker(CircuitBreakerOptions{}),
		Retry:   RetryOptions{MaxRetries: 1, Backoff: noBackoff},
	})
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer A1", gotAuth)
	assert.NotEmpty(t, gotID)
}
