// Package pprof mounts the runtime profiling endpoints.
package pprof

import (
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DefaultPrefix is where the endpoints mount unless overridden.
const DefaultPrefix = "/debug/pprof"

// Authorizer decides whether a request may read profiles.
type Authorizer func(*http.Request) bool

// Option customizes pprof registration.
type Option func(*options)

type options struct {
	prefix     string
	authorizer Authorizer
}

// WithPrefix overrides the default pprof prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithAuthorizer replaces the loopback-only default.
func WithAuthorizer(authorizer Authorizer) Option {
	return func(o *options) {
		o.authorizer = authorizer
	}
}

// Register mounts pprof routes on r. By default only loopback clients are
// served; everyone else gets 404.
func Register(r chi.Router, opts ...Option) {
	cfg := options{prefix: DefaultPrefix, authorizer: Loopback}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.prefix = normalizePrefix(cfg.prefix)
	if cfg.prefix == "" {
		cfg.prefix = DefaultPrefix
	}

	r.Route(cfg.prefix, func(group chi.Router) {
		group.Use(authorize(cfg.authorizer))
		group.Get("/", netpprof.Index)
		group.Get("/cmdline", netpprof.Cmdline)
		group.Get("/profile", netpprof.Profile)
		group.Get("/symbol", netpprof.Symbol)
		group.Post("/symbol", netpprof.Symbol)
		group.Get("/trace", netpprof.Trace)
		group.Get("/{profile}", func(w http.ResponseWriter, r *http.Request) {
			netpprof.Handler(chi.URLParam(r, "profile")).ServeHTTP(w, r)
		})
	})
}

// Loopback admits requests whose remote address is a loopback address.
func Loopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func authorize(allowed Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed == nil || !allowed(r) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return prefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimRight(prefix, "/")
	}
	return prefix
}
