package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// ErrBodyNotReplayable indicates a request body cannot be retried.
var ErrBodyNotReplayable = errors.New("request body is not replayable")

// BackoffFunc returns the backoff duration for a retry attempt.
type BackoffFunc func(attempt int) time.Duration

// RetryDecider decides whether a request should be retried.
type RetryDecider func(req *http.Request, resp *http.Response, err error) bool

// RetryOptions configures retry behavior.
type RetryOptions struct {
	MaxRetries int
	Backoff    BackoffFunc
	RetryIf    RetryDecider
	OnRetry    func(req *http.Request, attempt int, err error, resp *http.Response)
}

// RetryRoundTripper retries requests based on RetryOptions.
type RetryRoundTripper struct {
	Base    http.RoundTripper
	Options RetryOptions
}

// RoundTrip executes the request, retrying while the decider allows.
func (r *RetryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	base := baseOrDefault(r.Base)
	opts := normalizeRetryOptions(r.Options)

	attempt := 0
	var resp *http.Response
	var err error
	for {
		currentReq, cloneErr := cloneRequest(req, attempt)
		if cloneErr != nil {
			if errors.Is(cloneErr, ErrBodyNotReplayable) && attempt > 0 {
				return resp, err
			}
			return nil, cloneErr
		}

		resp, err = base.RoundTrip(currentReq)
		if attempt >= opts.MaxRetries || !opts.RetryIf(req, resp, err) {
			return resp, err
		}

		wait := opts.Backoff(attempt + 1)
		if hinted := retryAfter(resp); hinted > wait {
			wait = hinted
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		attempt++
		if opts.OnRetry != nil {
			opts.OnRetry(req, attempt, err, resp)
		}

		if err := sleepWithContext(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

// DefaultRetryOptions returns a retry configuration with exponential backoff.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 2,
		Backoff:    ExponentialBackoff(100*time.Millisecond, 2*time.Second),
		RetryIf:    DefaultRetryDecider,
	}
}

// ExponentialBackoff returns a backoff function with exponential growth.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max <= 0 {
		max = 2 * time.Second
	}
	return func(attempt int) time.Duration {
		if attempt <= 0 {
			return base
		}
		delay := base << (attempt - 1)
		if delay > max || delay <= 0 {
			return max
		}
		return delay
	}
}

// DefaultRetryDecider retries idempotent methods on network errors or 5xx/429 responses.
func DefaultRetryDecider(req *http.Request, resp *http.Response, err error) bool {
	if req == nil {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCircuitOpen) {
			return false
		}
		return isIdempotent(req.Method)
	}
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return isIdempotent(req.Method)
	}
	return false
}

func normalizeRetryOptions(options RetryOptions) RetryOptions {
	if options.Backoff == nil {
		options.Backoff = ExponentialBackoff(100*time.Millisecond, 2*time.Second)
	}
	if options.RetryIf == nil {
		options.RetryIf = DefaultRetryDecider
	}
	return options
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func cloneRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 {
		return req, nil
	}

	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func baseOrDefault(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		return http.DefaultTransport
	}
	return base
}
