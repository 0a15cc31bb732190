// Package health reports whether the client can serve its views: liveness
// is unconditional, readiness runs the registered dependency checks.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/httpclient"
	"github.com/devmarvs/digibank/render"
)

// CheckFunc reports a dependency problem as an error.
type CheckFunc func(context.Context) error

// CheckResult reports a single check.
type CheckResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report is the readiness response body.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Registry holds readiness checks.
type Registry struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New creates a Registry whose checks each get at most timeout.
func New(timeout time.Duration) *Registry {
	return &Registry{checks: make(map[string]CheckFunc), timeout: timeout}
}

// Add registers a readiness check under name.
func (r *Registry) Add(name string, check CheckFunc) {
	r.mu.Lock()
	r.checks[name] = check
	r.mu.Unlock()
}

// Live answers 200 while the process serves requests.
func (r *Registry) Live() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = render.JSON(w, http.StatusOK, Report{Status: "ok", Checks: []CheckResult{}})
	})
}

// Ready runs every check and answers 503 when any fails.
func (r *Registry) Ready() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report := r.Check(req.Context())
		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		_ = render.JSON(w, status, report)
	})
}

// Check runs the checks in name order.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.RUnlock()
	sort.Strings(names)

	report := Report{Status: "ok", Checks: make([]CheckResult, 0, len(names))}
	for _, name := range names {
		result := r.run(ctx, checks[name])
		result.Name = name
		if result.Status != "ok" {
			report.Status = "fail"
		}
		report.Checks = append(report.Checks, result)
	}
	return report
}

func (r *Registry) run(ctx context.Context, check CheckFunc) CheckResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	err := check(ctx)
	result := CheckResult{Status: "ok", DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "fail"
		result.Error = err.Error()
	}
	return result
}

// StoreCheck passes while the credential store answers, with or without a
// stored pair.
func StoreCheck(store credstore.Store) CheckFunc {
	return func(ctx context.Context) error {
		_, err := store.AccessToken(ctx)
		if err == nil || errors.Is(err, credstore.ErrNotFound) {
			return nil
		}
		return err
	}
}

// BreakerCheck fails while breaker is open.
func BreakerCheck(breaker *httpclient.CircuitBreaker) CheckFunc {
	return func(context.Context) error {
		if state := breaker.State(); state == httpclient.BreakerOpen {
			return fmt.Errorf("circuit %s", state)
		}
		return nil
	}
}
