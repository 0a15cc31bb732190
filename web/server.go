// Package web serves the landing, registration, login and dashboard views
// over the session core.
package web

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/devmarvs/digibank/assets"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/guard"
	"github.com/devmarvs/digibank/health"
	"github.com/devmarvs/digibank/inflight"
	"github.com/devmarvs/digibank/metrics"
	"github.com/devmarvs/digibank/middleware"
	"github.com/devmarvs/digibank/pprof"
	"github.com/devmarvs/digibank/render"
	"github.com/devmarvs/digibank/session"
)

// Submission affordances guarded by an in-flight lock.
const (
	formRegister      = "register"
	formLogin         = "login"
	formFederated     = "federated-login"
	formCreateAccount = "create-account"
)

// Options wires a Server.
type Options struct {
	Identity IdentityGateway
	Accounts AccountService
	Session  *session.Context
	Tokens   TokenReader
	Flash    *flash.Store

	Metrics *metrics.Metrics
	Health  *health.Registry
	Logger  *slog.Logger
	Tracer  trace.Tracer

	GoogleClientID string
	// Profiling mounts /debug/pprof for loopback clients.
	Profiling bool
	// Templates overrides the embedded templates, for live editing.
	Templates      fs.FS
	TemplateReload bool
	SecureCookies  bool
}

// Server holds the views and their collaborators.
type Server struct {
	identity IdentityGateway
	accounts AccountService
	session  *session.Context
	tokens   TokenReader
	flash    *flash.Store
	metrics  *metrics.Metrics
	health   *health.Registry
	logger   *slog.Logger
	tracer   trace.Tracer

	googleClientID string
	secureCookies  bool
	profiling      bool

	engine *render.Engine
	policy *guard.Policy
	locks  *inflight.Set
}

// New validates options and parses the templates.
func New(options Options) (*Server, error) {
	if options.Identity == nil || options.Session == nil || options.Tokens == nil || options.Flash == nil {
		return nil, errors.New("web: identity, session, tokens and flash are required")
	}
	if options.Accounts == nil {
		return nil, errors.New("web: accounts service is required")
	}

	templates := options.Templates
	if templates == nil {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, err
		}
		templates = sub
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	resolver := assets.NewResolver(static, "/static", assets.WithDevMode(options.TemplateReload))
	engine, err := render.NewEngine(templates, render.Options{
		Layout:   "layout.html",
		Partials: "partials/*.html",
		Funcs:    Funcs(resolver),
		Reload:   options.TemplateReload,
	})
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	options.Flash.Secure = options.SecureCookies
	checks := options.Health
	if checks == nil {
		checks = health.New(0)
	}

	return &Server{
		identity:       options.Identity,
		accounts:       options.Accounts,
		session:        options.Session,
		tokens:         options.Tokens,
		flash:          options.Flash,
		metrics:        options.Metrics,
		health:         checks,
		logger:         logger,
		tracer:         options.Tracer,
		googleClientID: options.GoogleClientID,
		secureCookies:  options.SecureCookies,
		profiling:      options.Profiling,
		engine:         engine,
		policy:         guard.NewPolicy(guard.DashboardPath),
		locks:          inflight.NewSet(),
	}, nil
}

// Handler returns the routed view surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(s.logger, s.renderPanic))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}
	if s.tracer != nil {
		r.Use(middleware.Trace(middleware.DefaultTraceOptions(s.tracer)))
	}
	r.Use(middleware.Logger(s.logger, middleware.DefaultLoggerOptions()))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeaders()))

	r.Method(http.MethodGet, "/healthz", s.health.Live())
	r.Method(http.MethodGet, "/readyz", s.health.Ready())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))
	if s.profiling {
		pprof.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			CookieSecure: s.secureCookies,
			OnFailure:    s.handle(csrfFailure),
		}))
		r.Use(guard.Middleware(s.policy, s.session))

		r.Get("/", s.handle(s.landing))
		r.Get("/register", s.handle(s.registerForm))
		r.Post("/register", s.handle(s.register))
		r.Get(guard.LoginPath, s.handle(s.loginForm))
		r.Post(guard.LoginPath, s.handle(s.login))
		r.Post("/login/federated", s.handle(s.loginFederated))
		r.Post("/logout", s.handle(s.logout))
		r.Get("/events", s.events)

		r.Get(guard.DashboardPath, s.handle(s.dashboard))
		r.Post(guard.DashboardPath+"/accounts", s.handle(s.createAccount))
	})

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return errNotFound
	}))
	return r
}
