// Package guard decides whether a view may render for the current session.
package guard

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/devmarvs/digibank/render"
)

// LoginPath is where anonymous visitors of protected views are sent.
const LoginPath = "/login"

// DashboardPath is the default landing view after login.
const DashboardPath = "/dashboard"

// Action is the outcome of a guard decision.
type Action int

const (
	Render Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "render"
}

// Decision tells the caller to render the requested view or redirect.
type Decision struct {
	Action Action
	Path   string
}

// Policy holds the protected path prefixes. Everything else is public.
type Policy struct {
	protected *set.Set[string]
}

// NewPolicy builds a policy protecting the given prefixes, or the dashboard
// when none are given.
func NewPolicy(prefixes ...string) *Policy {
	if len(prefixes) == 0 {
		prefixes = []string{DashboardPath}
	}
	protected := set.New[string](len(prefixes))
	for _, prefix := range prefixes {
		protected.Insert(clean(prefix))
	}
	return &Policy{protected: protected}
}

var defaultPolicy = NewPolicy()

// Decide applies the default policy.
func Decide(authenticated bool, requested string) Decision {
	return defaultPolicy.Decide(authenticated, requested)
}

// Protected reports whether requested falls under a protected prefix.
func (p *Policy) Protected(requested string) bool {
	requested = clean(requested)
	if p.protected.Contains(requested) {
		return true
	}
	for _, prefix := range p.protected.Slice() {
		if strings.HasPrefix(requested, prefix+"/") {
			return true
		}
	}
	return false
}

// Decide is pure: it never changes session state.
func (p *Policy) Decide(authenticated bool, requested string) Decision {
	if authenticated || !p.Protected(requested) {
		return Decision{Action: Render, Path: requested}
	}
	return Decision{Action: Redirect, Path: LoginPath}
}

// SafeNext returns next when it is a local path, otherwise the dashboard.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return DashboardPath
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		return DashboardPath
	}
	return next
}

// StateSource reports the current authentication state.
type StateSource interface {
	Authenticated() bool
}

// Middleware consults source on every request and redirects anonymous
// requests for protected views to the login view.
func Middleware(policy *Policy, source StateSource) func(http.Handler) http.Handler {
	if policy == nil {
		policy = defaultPolicy
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := policy.Decide(source.Authenticated(), r.URL.Path)
			if decision.Action == Render {
				next.ServeHTTP(w, r)
				return
			}

			if render.WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			target := decision.Path
			if r.Method == http.MethodGet {
				target += "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
